package lending

import (
	"math/big"
	"time"
)

// Accrue folds elapsed-time interest into a position's debt:
//
//	interest = debt * annualRate * dt / (BasisPoints * SecondsPerYear)
//
// with truncating integer division. It is a pure function; callers decide
// whether to persist the result. Each call models simple linear interest,
// and compounding emerges across calls because each one folds accrued
// interest into principal before the next elapsed period is measured.
//
// Zero debt just pins LastAccrued to now. dt <= 0 (same second, or a clock
// that appears to run backwards) is a no-op: LastAccrued is never rewound.
func Accrue(p Position, params RiskParameters, now time.Time) Position {
	if p.Debt == 0 {
		p.LastAccrued = now
		return p
	}
	dt := now.Unix() - p.LastAccrued.Unix()
	if dt <= 0 {
		return p
	}
	p.Debt += interestFor(p.Debt, params.AnnualRate, dt)
	p.LastAccrued = now
	return p
}

// interestFor computes debt*rate*dt/(BasisPoints*SecondsPerYear) in big.Int:
// the three-way product overflows int64 for principals past ~5.8e7 units at
// the rate ceiling over a year.
func interestFor(debt, annualRate, dt int64) int64 {
	num := new(big.Int).Mul(big.NewInt(debt), big.NewInt(annualRate))
	num.Mul(num, big.NewInt(dt))
	den := new(big.Int).Mul(big.NewInt(BasisPoints), big.NewInt(SecondsPerYear))
	return num.Quo(num, den).Int64()
}

// maxDebtFor is the collateral-ratio ceiling: collateral*maxLTV/BasisPoints,
// truncating toward zero.
func maxDebtFor(collateral, maxLTV int64) int64 {
	num := new(big.Int).Mul(big.NewInt(collateral), big.NewInt(maxLTV))
	return num.Quo(num, big.NewInt(BasisPoints)).Int64()
}
