package registry

import (
	"context"

	id "clearledger/pkg/domain"
)

// Store persists compliance records and pending commitments. Implementations
// return sentinel.ErrNotFound (optionally wrapped) for absent rows; the
// service translates that into domain errors.
type Store interface {
	SaveRecord(ctx context.Context, record Record) error
	FindRecord(ctx context.Context, account id.AccountID) (Record, error)

	SavePending(ctx context.Context, pending PendingRequest) error
	FindPending(ctx context.Context, account id.AccountID) (PendingRequest, error)
	DeletePending(ctx context.Context, account id.AccountID) error
}
