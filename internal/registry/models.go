// Package registry tracks verification status per account. It is the gate
// every other component consults before moving value: an account is
// currently compliant when it has an unexpired approval on record.
package registry

import (
	"time"

	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
)

// Record is the compliance state of one account.
//
// Invariants:
//   - Approved && (ExpiresAt.IsZero() || now <= ExpiresAt) defines
//     "currently compliant"
//   - Revoke clears Approved only; Level and ExpiresAt keep their last
//     approved values so the audit trail stays reconstructable from events
type Record struct {
	Account   id.AccountID
	Approved  bool
	Level     int
	ExpiresAt time.Time // zero value = approval never expires
	UpdatedAt time.Time
}

// CompliantAt evaluates the expiry-aware compliance predicate.
func (r Record) CompliantAt(now time.Time) bool {
	if !r.Approved {
		return false
	}
	return r.ExpiresAt.IsZero() || !now.After(r.ExpiresAt)
}

// PendingRequest is an account's outstanding verification request: the
// dossier fingerprint published by the account itself, consumed exactly once
// when an approval is granted. Last write wins on re-request.
type PendingRequest struct {
	Account     id.AccountID
	Commitment  commitment.Commitment
	RequestedAt time.Time
}
