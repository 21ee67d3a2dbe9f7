// Package audit is the append-only event log of the core. Every
// state-changing operation emits exactly one event, in total execution
// order, so a downstream indexer can reconstruct state by replay. Events are
// never withdrawn or amended after emission.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "clearledger/pkg/domain"
)

// Kind identifies the operation an event records.
type Kind string

const (
	KindVerificationRequested Kind = "verification.requested"
	KindVerificationApproved  Kind = "verification.approved"
	KindVerificationRevoked   Kind = "verification.revoked"

	KindMinted      Kind = "token.minted"
	KindBurned      Kind = "token.burned"
	KindTransferred Kind = "token.transferred"
	KindExemptSet   Kind = "token.exempt_set"

	KindDeposited        Kind = "vault.deposited"
	KindWithdrawn        Kind = "vault.withdrawn"
	KindVaultTransferred Kind = "vault.transferred"
	KindStraySwept       Kind = "vault.stray_swept"

	KindCollateralDeposited Kind = "lending.collateral_deposited"
	KindCollateralWithdrawn Kind = "lending.collateral_withdrawn"
	KindBorrowed            Kind = "lending.borrowed"
	KindRepaid              Kind = "lending.repaid"
	KindRiskParametersSet   Kind = "lending.risk_parameters_set"
)

// Event is one append-only audit record. State carries the new relevant
// state after the operation (new balance, new debt, total supply) keyed by
// short snake_case names so the indexer can replay without joins.
type Event struct {
	ID           uuid.UUID
	Sequence     uint64
	Kind         Kind
	Actor        id.AccountID
	Account      id.AccountID
	Counterparty id.AccountID
	Amount       int64
	State        map[string]int64
	Device       string
	Timestamp    time.Time
}
