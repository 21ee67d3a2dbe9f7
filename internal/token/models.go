// Package token is the fungible balance ledger. Balances represent claims on
// value deposited through the vault; every balance-changing operation routes
// through one compliance choke point.
//
// Invariants:
//   - sum(balances) == totalSupply after every operation
//   - no balance is ever negative
//   - a failed compliance or balance check rejects the operation before any
//     state mutation
package token

import id "clearledger/pkg/domain"

// Holding is one account's row in the ledger: its balance and whether the
// account is exempt from per-transfer compliance checks. Exempt accounts are
// system accounts (vault custody, lending reserves) that hold balance on
// behalf of many underlying compliant users rather than as end
// beneficiaries.
type Holding struct {
	Account id.AccountID
	Balance int64
	Exempt  bool
}
