package lending

import (
	"context"

	id "clearledger/pkg/domain"
)

// Store persists positions and the single-row risk parameter record.
// FindPosition returns a zero Position (not an error) for unknown accounts.
// RiskParameters returns sentinel.ErrNotFound until seeded.
type Store interface {
	FindPosition(ctx context.Context, account id.AccountID) (Position, error)
	SavePosition(ctx context.Context, position Position) error

	RiskParameters(ctx context.Context) (RiskParameters, error)
	SaveRiskParameters(ctx context.Context, params RiskParameters) error
}
