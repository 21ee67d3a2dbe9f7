package lending

import (
	"context"
	"errors"
	"fmt"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/platform/sentinel"
	"clearledger/pkg/requestcontext"
)

// Ledger is the slice of the token service the facility needs. Collateral
// and repayments are pulled into the facility's custody account; borrows and
// refunds are paid from it.
type Ledger interface {
	Transfer(ctx context.Context, from, to id.AccountID, amount int64) error
}

// Compliance is the registry read the facility gates on.
type Compliance interface {
	IsCompliant(ctx context.Context, account id.AccountID) (bool, error)
}

// Service runs the facility. Every mutating operation accrues the caller's
// position first, so interest is always folded into principal before limits
// are checked or state changes.
type Service struct {
	account    id.AccountID
	store      Store
	ledger     Ledger
	compliance Compliance
	authz      *authz.Table
	publisher  *audit.Publisher
}

// NewService wires the facility and seeds the risk-parameter record when
// none exists yet.
func NewService(ctx context.Context, account id.AccountID, store Store, ledger Ledger, compliance Compliance, table *authz.Table, publisher *audit.Publisher, defaults RiskParameters) (*Service, error) {
	if account.IsZero() {
		return nil, errors.New("facility custody account is required")
	}
	if store == nil {
		return nil, errors.New("lending store is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if compliance == nil {
		return nil, errors.New("compliance checker is required")
	}
	if table == nil {
		return nil, errors.New("authz table is required")
	}
	if publisher == nil {
		return nil, errors.New("audit publisher is required")
	}
	s := &Service{
		account:    account,
		store:      store,
		ledger:     ledger,
		compliance: compliance,
		authz:      table,
		publisher:  publisher,
	}
	if _, err := store.RiskParameters(ctx); errors.Is(err, sentinel.ErrNotFound) {
		if defaults.MaxLTV > MaxLTVCeiling || defaults.AnnualRate > AnnualRateCeiling {
			return nil, errors.New("default risk parameters out of range")
		}
		defaults.Version = 1
		defaults.UpdatedAt = requestcontext.Now(ctx)
		if err := store.SaveRiskParameters(ctx, defaults); err != nil {
			return nil, fmt.Errorf("seed risk parameters: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read risk parameters: %w", err)
	}
	return s, nil
}

// Account returns the facility's custody account.
func (s *Service) Account() id.AccountID {
	return s.account
}

// DepositCollateral pulls tokens from the caller into facility custody.
func (s *Service) DepositCollateral(ctx context.Context, caller id.AccountID, amount int64) error {
	position, _, err := s.begin(ctx, caller, amount)
	if err != nil {
		return err
	}
	if err := s.ledger.Transfer(ctx, caller, s.account, amount); err != nil {
		return err
	}
	position.Collateral += amount
	if err := s.store.SavePosition(ctx, position); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save position", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindCollateralDeposited,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   s.positionState(position),
	})
}

// WithdrawCollateral releases collateral as long as the remaining pledge
// still covers the debt at the current LTV ceiling.
func (s *Service) WithdrawCollateral(ctx context.Context, caller id.AccountID, amount int64) error {
	position, params, err := s.begin(ctx, caller, amount)
	if err != nil {
		return err
	}

	newCollateral := position.Collateral - amount
	if newCollateral < 0 {
		return dErrors.New(dErrors.CodeInsufficientCollateral,
			fmt.Sprintf("collateral %d is less than %d", position.Collateral, amount))
	}
	if position.Debt > maxDebtFor(newCollateral, params.MaxLTV) {
		return dErrors.New(dErrors.CodeInsufficientCollateral,
			"withdrawal would breach the loan-to-value ceiling")
	}

	position.Collateral = newCollateral
	if err := s.store.SavePosition(ctx, position); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save position", err)
	}
	if err := s.ledger.Transfer(ctx, s.account, caller, amount); err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindCollateralWithdrawn,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   s.positionState(position),
	})
}

// Borrow issues tokens from facility reserves against pledged collateral.
func (s *Service) Borrow(ctx context.Context, caller id.AccountID, amount int64) error {
	position, params, err := s.begin(ctx, caller, amount)
	if err != nil {
		return err
	}

	if position.Debt+amount > maxDebtFor(position.Collateral, params.MaxLTV) {
		return dErrors.New(dErrors.CodeBorrowTooLarge,
			fmt.Sprintf("debt %d plus %d exceeds the loan-to-value ceiling", position.Debt, amount))
	}

	position.Debt += amount
	if err := s.store.SavePosition(ctx, position); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save position", err)
	}
	if err := s.ledger.Transfer(ctx, s.account, caller, amount); err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindBorrowed,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   s.positionState(position),
	})
}

// Repay pulls amount from the caller. Overpayment zeroes the debt and
// refunds the difference; partial payment just reduces it.
func (s *Service) Repay(ctx context.Context, caller id.AccountID, amount int64) error {
	if err := s.requireCompliant(ctx, caller); err != nil {
		return err
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeAmountZero, "amount must be positive")
	}
	position, err := s.store.FindPosition(ctx, caller)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "find position", err)
	}
	if position.Debt == 0 {
		return dErrors.New(dErrors.CodeNoDebt, "account has no outstanding debt")
	}
	params, err := s.store.RiskParameters(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "read risk parameters", err)
	}
	position = Accrue(position, params, requestcontext.Now(ctx))

	if err := s.ledger.Transfer(ctx, caller, s.account, amount); err != nil {
		return err
	}
	var refund int64
	if amount >= position.Debt {
		refund = amount - position.Debt
		position.Debt = 0
		position.LastAccrued = requestcontext.Now(ctx)
	} else {
		position.Debt -= amount
	}
	if err := s.store.SavePosition(ctx, position); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save position", err)
	}
	if refund > 0 {
		if err := s.ledger.Transfer(ctx, s.account, caller, refund); err != nil {
			return err
		}
	}
	state := s.positionState(position)
	state["refund"] = refund
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindRepaid,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   state,
	})
}

// SetRiskParameters replaces the global record. Risk-officer capability
// only; ceilings are hard limits.
func (s *Service) SetRiskParameters(ctx context.Context, actor id.AccountID, maxLTV, annualRate int64) error {
	if err := s.authz.Require(ctx, actor, id.CapabilityRiskOfficer); err != nil {
		return err
	}
	if maxLTV < 0 || maxLTV > MaxLTVCeiling {
		return dErrors.New(dErrors.CodeParameterOutOfRange,
			fmt.Sprintf("max LTV %d exceeds ceiling %d", maxLTV, MaxLTVCeiling))
	}
	if annualRate < 0 || annualRate > AnnualRateCeiling {
		return dErrors.New(dErrors.CodeParameterOutOfRange,
			fmt.Sprintf("annual rate %d exceeds ceiling %d", annualRate, AnnualRateCeiling))
	}
	current, err := s.store.RiskParameters(ctx)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(dErrors.CodeInternal, "read risk parameters", err)
	}
	params := RiskParameters{
		MaxLTV:     maxLTV,
		AnnualRate: annualRate,
		Version:    current.Version + 1,
		UpdatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.SaveRiskParameters(ctx, params); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save risk parameters", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindRiskParametersSet,
		Actor:   actor,
		Account: actor,
		State: map[string]int64{
			"max_ltv":     maxLTV,
			"annual_rate": annualRate,
			"version":     params.Version,
		},
	})
}

// GetAccount returns the position with debt projected to now. It simulates
// accrual without persisting, so callers always see live figures while reads
// stay side-effect free.
func (s *Service) GetAccount(ctx context.Context, account id.AccountID) (Position, error) {
	position, err := s.store.FindPosition(ctx, account)
	if err != nil {
		return Position{}, dErrors.Wrap(dErrors.CodeInternal, "find position", err)
	}
	params, err := s.store.RiskParameters(ctx)
	if err != nil {
		return Position{}, dErrors.Wrap(dErrors.CodeInternal, "read risk parameters", err)
	}
	projected := Accrue(position, params, requestcontext.Now(ctx))
	projected.LastAccrued = position.LastAccrued
	return projected, nil
}

// GetRiskParameters returns the current global record.
func (s *Service) GetRiskParameters(ctx context.Context) (RiskParameters, error) {
	params, err := s.store.RiskParameters(ctx)
	if err != nil {
		return RiskParameters{}, dErrors.Wrap(dErrors.CodeInternal, "read risk parameters", err)
	}
	return params, nil
}

// begin runs the shared preamble of every mutating position operation:
// compliance gate, amount validation, then accrual folded in before the
// operation's own logic sees the position.
func (s *Service) begin(ctx context.Context, caller id.AccountID, amount int64) (Position, RiskParameters, error) {
	if err := s.requireCompliant(ctx, caller); err != nil {
		return Position{}, RiskParameters{}, err
	}
	if amount <= 0 {
		return Position{}, RiskParameters{}, dErrors.New(dErrors.CodeAmountZero, "amount must be positive")
	}
	position, err := s.store.FindPosition(ctx, caller)
	if err != nil {
		return Position{}, RiskParameters{}, dErrors.Wrap(dErrors.CodeInternal, "find position", err)
	}
	params, err := s.store.RiskParameters(ctx)
	if err != nil {
		return Position{}, RiskParameters{}, dErrors.Wrap(dErrors.CodeInternal, "read risk parameters", err)
	}
	position = Accrue(position, params, requestcontext.Now(ctx))
	return position, params, nil
}

func (s *Service) positionState(p Position) map[string]int64 {
	return map[string]int64{
		"collateral": p.Collateral,
		"debt":       p.Debt,
	}
}

func (s *Service) requireCompliant(ctx context.Context, account id.AccountID) error {
	compliant, err := s.compliance.IsCompliant(ctx, account)
	if err != nil {
		return err
	}
	if !compliant {
		return dErrors.New(dErrors.CodeNotCompliant,
			fmt.Sprintf("account %s is not compliant", account))
	}
	return nil
}
