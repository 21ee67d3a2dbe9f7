package token

import (
	"context"
	"errors"
	"fmt"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
)

// ComplianceChecker is the registry read the ledger gates on. Accepting the
// interface keeps the ledger testable without a full registry.
type ComplianceChecker interface {
	IsCompliant(ctx context.Context, account id.AccountID) (bool, error)
}

// Service applies mints, burns, and transfers. All three route through the
// same choke point (move) so the compliance gate is written exactly once.
type Service struct {
	store      Store
	authz      *authz.Table
	compliance ComplianceChecker
	publisher  *audit.Publisher
}

func NewService(store Store, table *authz.Table, compliance ComplianceChecker, publisher *audit.Publisher) (*Service, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if table == nil {
		return nil, errors.New("authz table is required")
	}
	if compliance == nil {
		return nil, errors.New("compliance checker is required")
	}
	if publisher == nil {
		return nil, errors.New("audit publisher is required")
	}
	return &Service{store: store, authz: table, compliance: compliance, publisher: publisher}, nil
}

// Mint creates amount new units on to's balance. Minter capability only.
func (s *Service) Mint(ctx context.Context, actor, to id.AccountID, amount int64) error {
	if err := s.authz.Require(ctx, actor, id.CapabilityMinter); err != nil {
		return err
	}
	newBalance, err := s.move(ctx, "", to, amount)
	if err != nil {
		return err
	}
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "read total supply", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindMinted,
		Actor:   actor,
		Account: to,
		Amount:  amount,
		State:   map[string]int64{"balance": newBalance, "total_supply": supply},
	})
}

// Burn destroys amount units from from's balance. Minter capability only.
func (s *Service) Burn(ctx context.Context, actor, from id.AccountID, amount int64) error {
	if err := s.authz.Require(ctx, actor, id.CapabilityMinter); err != nil {
		return err
	}
	newBalance, err := s.move(ctx, from, "", amount)
	if err != nil {
		return err
	}
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "read total supply", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindBurned,
		Actor:   actor,
		Account: from,
		Amount:  amount,
		State:   map[string]int64{"balance": newBalance, "total_supply": supply},
	})
}

// Transfer moves amount units between accounts. The caller is the holder;
// transport and internal components pass the debited account as from.
func (s *Service) Transfer(ctx context.Context, from, to id.AccountID, amount int64) error {
	newBalance, err := s.move(ctx, from, to, amount)
	if err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:         audit.KindTransferred,
		Actor:        from,
		Account:      from,
		Counterparty: to,
		Amount:       amount,
		State:        map[string]int64{"balance": newBalance},
	})
}

// SetExempt marks an account as a system account exempt from per-transfer
// compliance checks. Token-admin capability only.
func (s *Service) SetExempt(ctx context.Context, actor, account id.AccountID, exempt bool) error {
	if err := s.authz.Require(ctx, actor, id.CapabilityTokenAdmin); err != nil {
		return err
	}
	if err := s.store.SetExempt(ctx, account, exempt); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "set exempt", err)
	}
	flag := int64(0)
	if exempt {
		flag = 1
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindExemptSet,
		Actor:   actor,
		Account: account,
		State:   map[string]int64{"exempt": flag},
	})
}

// BalanceOf returns the account's balance; unknown accounts hold 0.
func (s *Service) BalanceOf(ctx context.Context, account id.AccountID) (int64, error) {
	h, err := s.store.Find(ctx, account)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "find holding", err)
	}
	return h.Balance, nil
}

// TotalSupply returns the current total supply.
func (s *Service) TotalSupply(ctx context.Context) (int64, error) {
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "read total supply", err)
	}
	return supply, nil
}

// move is the single compliance choke point. A zero from means mint, a zero
// to means burn. Compliance of both non-exempt parties and debit sufficiency
// are validated before any state is written, then the whole delta set applies
// atomically. Returns the debited (or credited, for mint) account's new
// balance.
func (s *Service) move(ctx context.Context, from, to id.AccountID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeAmountZero, "amount must be positive")
	}

	deltas := make(map[id.AccountID]int64, 2)
	var supplyDelta int64
	var watched id.AccountID

	if from.IsZero() {
		supplyDelta += amount
	} else {
		holding, err := s.checkParty(ctx, from)
		if err != nil {
			return 0, err
		}
		if holding.Balance < amount {
			return 0, dErrors.New(dErrors.CodeInsufficientBalance,
				fmt.Sprintf("balance %d is less than %d", holding.Balance, amount))
		}
		deltas[from] -= amount
		watched = from
	}

	if to.IsZero() {
		supplyDelta -= amount
	} else {
		if _, err := s.checkParty(ctx, to); err != nil {
			return 0, err
		}
		deltas[to] += amount
		if watched.IsZero() {
			watched = to
		}
	}

	if err := s.store.Apply(ctx, deltas, supplyDelta); err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "apply balance deltas", err)
	}
	h, err := s.store.Find(ctx, watched)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "find holding", err)
	}
	return h.Balance, nil
}

// checkParty rejects non-exempt, non-compliant participants.
func (s *Service) checkParty(ctx context.Context, account id.AccountID) (Holding, error) {
	holding, err := s.store.Find(ctx, account)
	if err != nil {
		return Holding{}, dErrors.Wrap(dErrors.CodeInternal, "find holding", err)
	}
	if holding.Exempt {
		return holding, nil
	}
	compliant, err := s.compliance.IsCompliant(ctx, account)
	if err != nil {
		return Holding{}, err
	}
	if !compliant {
		return Holding{}, dErrors.New(dErrors.CodeNotCompliant,
			fmt.Sprintf("account %s is not compliant", account))
	}
	return holding, nil
}
