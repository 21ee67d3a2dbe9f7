// Package vault converts external value into ledger balance and back. It is
// the only place the core touches the outside world, so it carries the
// all-or-nothing commit discipline: every state change is validated before
// the external transfer, and a failed payout aborts the whole operation.
package vault

import (
	"context"
	"errors"
	"fmt"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ValueMover

// ValueMover moves external value between the vault and the outside world.
// Receive pulls value in during a deposit; Payout pushes it out during a
// withdrawal or sweep. Implementations may call back into the core; the
// in-progress marker rejects such re-entry.
type ValueMover interface {
	Receive(ctx context.Context, from id.AccountID, amount int64) error
	Payout(ctx context.Context, to id.AccountID, amount int64) error
}

// Ledger is the slice of the token service the vault needs.
type Ledger interface {
	Mint(ctx context.Context, actor, to id.AccountID, amount int64) error
	Burn(ctx context.Context, actor, from id.AccountID, amount int64) error
	Transfer(ctx context.Context, from, to id.AccountID, amount int64) error
	BalanceOf(ctx context.Context, account id.AccountID) (int64, error)
}

// Compliance is the registry read the vault gates on.
type Compliance interface {
	IsCompliant(ctx context.Context, account id.AccountID) (bool, error)
}

// Service mints against received value 1:1 and burns against payouts. The
// vault's custody account is an exempt system account holding the minter
// capability; backing tracks value received through the deposit path as
// additive bookkeeping, not a cross-component invariant.
type Service struct {
	account    id.AccountID
	ledger     Ledger
	compliance Compliance
	authz      *authz.Table
	publisher  *audit.Publisher
	mover      ValueMover

	backing  int64
	inflight bool
}

func NewService(account id.AccountID, ledger Ledger, compliance Compliance, table *authz.Table, publisher *audit.Publisher, mover ValueMover) (*Service, error) {
	if account.IsZero() {
		return nil, errors.New("vault custody account is required")
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
	if mover == nil {
		return nil, errors.New("value mover is required")
	}
	return &Service{
		account:    account,
		ledger:     ledger,
		compliance: compliance,
		authz:      table,
		publisher:  publisher,
		mover:      mover,
	}, nil
}

// Account returns the vault's custody account.
func (s *Service) Account() id.AccountID {
	return s.account
}

// Backing returns the external value received through the deposit path.
func (s *Service) Backing() int64 {
	return s.backing
}

// Deposit receives external value and mints ledger units 1:1 to the caller.
// Receipt and mint are one atomic unit: a failed mint refunds the receipt.
func (s *Service) Deposit(ctx context.Context, caller id.AccountID, amount int64) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := s.requireCompliant(ctx, caller); err != nil {
		return err
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeAmountZero, "deposit amount must be positive")
	}

	if err := s.mover.Receive(ctx, caller, amount); err != nil {
		return dErrors.Wrap(dErrors.CodePayoutFailed, "external value receipt failed", err)
	}
	if err := s.ledger.Mint(ctx, s.account, caller, amount); err != nil {
		// Undo the receipt so no value is held without a minted claim. A
		// failed refund means value is stranded outside the ledger, which
		// outranks the mint rejection in the returned error.
		if refundErr := s.mover.Payout(ctx, caller, amount); refundErr != nil {
			return dErrors.Wrap(dErrors.CodePayoutFailed,
				fmt.Sprintf("deposit refund failed after rejected mint: %v", err), refundErr)
		}
		return err
	}
	s.backing += amount

	balance, err := s.ledger.BalanceOf(ctx, caller)
	if err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindDeposited,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   map[string]int64{"balance": balance, "backing": s.backing},
	})
}

// Withdraw burns ledger units and pays out equivalent external value. All
// state changes are validated before the payout; a failed payout aborts the
// operation with nothing burned.
func (s *Service) Withdraw(ctx context.Context, caller id.AccountID, amount int64) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := s.requireCompliant(ctx, caller); err != nil {
		return err
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeAmountZero, "withdraw amount must be positive")
	}
	balance, err := s.ledger.BalanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if balance < amount {
		return dErrors.New(dErrors.CodeInsufficientBalance,
			fmt.Sprintf("balance %d is less than %d", balance, amount))
	}

	if err := s.mover.Payout(ctx, caller, amount); err != nil {
		return dErrors.Wrap(dErrors.CodePayoutFailed, "external value payout failed", err)
	}
	if err := s.ledger.Burn(ctx, s.account, caller, amount); err != nil {
		return err
	}
	s.backing -= amount

	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindWithdrawn,
		Actor:   caller,
		Account: caller,
		Amount:  amount,
		State:   map[string]int64{"balance": balance - amount, "backing": s.backing},
	})
}

// TransferCompliant moves tokens between two compliant accounts through
// vault custody: debit the caller into the vault, then credit the
// recipient. The pull-then-push exists as a second enforcement point on top
// of the token-level gate; the net effect equals a direct transfer.
func (s *Service) TransferCompliant(ctx context.Context, caller, to id.AccountID, amount int64) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := s.requireCompliant(ctx, caller); err != nil {
		return err
	}
	if err := s.requireCompliant(ctx, to); err != nil {
		return err
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeAmountZero, "transfer amount must be positive")
	}

	if err := s.ledger.Transfer(ctx, caller, s.account, amount); err != nil {
		return err
	}
	if err := s.ledger.Transfer(ctx, s.account, to, amount); err != nil {
		return err
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:         audit.KindVaultTransferred,
		Actor:        caller,
		Account:      caller,
		Counterparty: to,
		Amount:       amount,
	})
}

// SweepStray pays out external value that reached the vault outside the
// deposit path. Treasury capability only; deliberately outside the
// accounting invariants.
func (s *Service) SweepStray(ctx context.Context, actor, to id.AccountID, amount int64) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := s.authz.Require(ctx, actor, id.CapabilityTreasury); err != nil {
		return err
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeAmountZero, "sweep amount must be positive")
	}
	if err := s.mover.Payout(ctx, to, amount); err != nil {
		return dErrors.Wrap(dErrors.CodePayoutFailed, "stray value payout failed", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindStraySwept,
		Actor:   actor,
		Account: to,
		Amount:  amount,
	})
}

// enter sets the in-progress marker and returns its release. A call arriving
// while another operation is mid-flight (only possible from within a value
// mover callback) is rejected to prevent double-spend via recursion.
func (s *Service) enter() (func(), error) {
	if s.inflight {
		return nil, dErrors.New(dErrors.CodeReentrantCall, "vault operation already in progress")
	}
	s.inflight = true
	return func() { s.inflight = false }, nil
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
