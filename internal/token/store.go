package token

import (
	"context"

	id "clearledger/pkg/domain"
)

// Store persists holdings and the total supply. Find returns a zero Holding
// (not an error) for unknown accounts: every account implicitly starts with
// balance 0.
//
// Apply commits a validated set of balance deltas plus the matching supply
// delta as one atomic write. The service has already checked compliance and
// sufficiency; implementations only apply.
type Store interface {
	Find(ctx context.Context, account id.AccountID) (Holding, error)
	SetExempt(ctx context.Context, account id.AccountID, exempt bool) error
	TotalSupply(ctx context.Context) (int64, error)
	Apply(ctx context.Context, deltas map[id.AccountID]int64, supplyDelta int64) error
}
