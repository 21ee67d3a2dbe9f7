// Package authz is the capability table: privileged roles are authorization
// facts keyed by (capability, account), not identities. Every privileged
// operation funnels through one guard so the check is written once.
package authz

import (
	"context"
	"fmt"

	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
)

// Table maps (capability, account) to a grant. Mutations require the steward
// account fixed at construction; the single-writer engine serializes all
// access, so no internal locking is needed beyond that.
type Table struct {
	steward id.AccountID
	grants  map[id.Capability]map[id.AccountID]bool
}

// NewTable seeds the table. The steward is the only account allowed to
// change grants afterwards.
func NewTable(steward id.AccountID, seed map[id.Capability][]id.AccountID) *Table {
	grants := make(map[id.Capability]map[id.AccountID]bool)
	for capability, accounts := range seed {
		grants[capability] = make(map[id.AccountID]bool, len(accounts))
		for _, account := range accounts {
			grants[capability][account] = true
		}
	}
	return &Table{steward: steward, grants: grants}
}

// Require returns Unauthorized unless account holds the capability.
func (t *Table) Require(_ context.Context, account id.AccountID, capability id.Capability) error {
	if !t.grants[capability][account] {
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("account %s lacks capability %s", account, capability))
	}
	return nil
}

// Holds reports the grant without producing an error.
func (t *Table) Holds(_ context.Context, account id.AccountID, capability id.Capability) bool {
	return t.grants[capability][account]
}

// Grant adds a capability for an account. Steward only.
func (t *Table) Grant(ctx context.Context, actor, account id.AccountID, capability id.Capability) error {
	if err := t.requireSteward(actor); err != nil {
		return err
	}
	if !capability.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown capability")
	}
	if t.grants[capability] == nil {
		t.grants[capability] = make(map[id.AccountID]bool)
	}
	t.grants[capability][account] = true
	return nil
}

// Revoke removes a capability from an account. Steward only.
func (t *Table) Revoke(ctx context.Context, actor, account id.AccountID, capability id.Capability) error {
	if err := t.requireSteward(actor); err != nil {
		return err
	}
	delete(t.grants[capability], account)
	return nil
}

func (t *Table) requireSteward(actor id.AccountID) error {
	if actor != t.steward {
		return dErrors.New(dErrors.CodeUnauthorized, "only the steward may change grants")
	}
	return nil
}
