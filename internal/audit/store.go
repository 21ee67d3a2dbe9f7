package audit

import (
	"context"

	id "clearledger/pkg/domain"
)

// Store is the append-only persistence behind the publisher. Implementations
// must preserve insertion order; ListByAccount returns events oldest first.
// MaxSequence reports the highest sequence ever appended (0 when empty) so a
// restarted publisher resumes numbering instead of reissuing from 1.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account id.AccountID) ([]Event, error)
	MaxSequence(ctx context.Context) (uint64, error)
}
