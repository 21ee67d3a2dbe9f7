// Package lending is the collateralized credit facility: ledger tokens
// pledged as collateral, ledger tokens issued as debt, linear interest
// folded into principal on every touch, and a loan-to-value ceiling checked
// after every borrow and collateral withdrawal.
package lending

import (
	"time"

	id "clearledger/pkg/domain"
)

// Basis-point arithmetic constants.
const (
	BasisPoints    = 10_000
	SecondsPerYear = 365 * 24 * 60 * 60

	// Hard ceilings for risk parameters.
	MaxLTVCeiling     = 9_000
	AnnualRateCeiling = 5_000
)

// Position is one account's standing in the facility.
//
// Invariants:
//   - after every successful borrow or collateral withdrawal:
//     Debt <= Collateral * MaxLTV / BasisPoints (truncating division)
//   - Debt only increases via borrow or accrual, only decreases via repay
//   - LastAccrued is only ever set to the current operation's timestamp,
//     never rewound
type Position struct {
	Account     id.AccountID
	Collateral  int64
	Debt        int64
	LastAccrued time.Time
}

// RiskParameters is the single-row, versioned global configuration. Each
// operation reads it by value at the start; no implicit refresh mid-flight.
type RiskParameters struct {
	MaxLTV     int64 // basis points, <= MaxLTVCeiling
	AnnualRate int64 // basis points, <= AnnualRateCeiling
	Version    int64
	UpdatedAt  time.Time
}
