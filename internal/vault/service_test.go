package vault_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/internal/token"
	"clearledger/internal/vault"
	"clearledger/internal/vault/mocks"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
)

const (
	steward   = id.AccountID("steward")
	vaultAcct = id.AccountID("system:vault")
	treasurer = id.AccountID("treasurer")
	alice     = id.AccountID("alice")
	bob       = id.AccountID("bob")
	mallory   = id.AccountID("mallory")
)

type staticCompliance map[id.AccountID]bool

func (c staticCompliance) IsCompliant(_ context.Context, account id.AccountID) (bool, error) {
	return c[account], nil
}

type VaultServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mover      *mocks.MockValueMover
	ledger     *token.Service
	svc        *vault.Service
	events     *audit.InMemoryStore
	compliance staticCompliance
	ctx        context.Context
}

func TestVaultServiceSuite(t *testing.T) {
	suite.Run(t, new(VaultServiceSuite))
}

func (s *VaultServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mover = mocks.NewMockValueMover(s.ctrl)
	s.events = audit.NewInMemoryStore()
	s.compliance = staticCompliance{alice: true, bob: true, treasurer: true}

	table := authz.NewTable(steward, map[id.Capability][]id.AccountID{
		id.CapabilityMinter:     {vaultAcct},
		id.CapabilityTokenAdmin: {steward},
		id.CapabilityTreasury:   {treasurer},
	})
	publisher := audit.NewPublisher(s.events)

	ledger, err := token.NewService(token.NewInMemoryStore(), table, s.compliance, publisher)
	s.Require().NoError(err)
	s.ledger = ledger
	s.Require().NoError(ledger.SetExempt(s.ctx, steward, vaultAcct, true))

	svc, err := vault.NewService(vaultAcct, ledger, s.compliance, table, publisher, s.mover)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *VaultServiceSuite) balance(account id.AccountID) int64 {
	b, err := s.ledger.BalanceOf(s.ctx, account)
	s.Require().NoError(err)
	return b
}

func (s *VaultServiceSuite) TestDeposit() {
	s.Run("rejects non-compliant caller before touching external value", func() {
		err := s.svc.Deposit(s.ctx, mallory, 100)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	})

	s.Run("rejects non-positive amounts", func() {
		s.True(dErrors.Is(s.svc.Deposit(s.ctx, alice, 0), dErrors.CodeAmountZero))
	})

	s.Run("mints one to one against received value", func() {
		s.mover.EXPECT().Receive(gomock.Any(), alice, int64(100)).Return(nil)
		s.Require().NoError(s.svc.Deposit(s.ctx, alice, 100))
		s.Equal(int64(100), s.balance(alice))
		s.Equal(int64(100), s.svc.Backing())
	})

	s.Run("failed mint refunds the receipt", func() {
		s.mover.EXPECT().Receive(gomock.Any(), alice, int64(40)).DoAndReturn(
			func(context.Context, id.AccountID, int64) error {
				s.compliance[alice] = false
				return nil
			})
		s.mover.EXPECT().Payout(gomock.Any(), alice, int64(40)).Return(nil)
		err := s.svc.Deposit(s.ctx, alice, 40)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
		s.Equal(int64(100), s.balance(alice))
		s.Equal(int64(100), s.svc.Backing())
		s.compliance[alice] = true
	})

	s.Run("failed refund surfaces as payout failure", func() {
		s.mover.EXPECT().Receive(gomock.Any(), alice, int64(40)).DoAndReturn(
			func(context.Context, id.AccountID, int64) error {
				s.compliance[alice] = false
				return nil
			})
		s.mover.EXPECT().Payout(gomock.Any(), alice, int64(40)).Return(errors.New("rail down"))
		err := s.svc.Deposit(s.ctx, alice, 40)
		s.True(dErrors.Is(err, dErrors.CodePayoutFailed))
		s.ErrorContains(err, "refund")
		s.Equal(int64(100), s.balance(alice))
		s.Equal(int64(100), s.svc.Backing())
		s.compliance[alice] = true
	})

	s.Run("failed receipt mints nothing", func() {
		s.mover.EXPECT().Receive(gomock.Any(), alice, int64(50)).Return(errors.New("rail down"))
		err := s.svc.Deposit(s.ctx, alice, 50)
		s.True(dErrors.Is(err, dErrors.CodePayoutFailed))
		s.Equal(int64(100), s.balance(alice))
		s.Equal(int64(100), s.svc.Backing())
	})
}

func (s *VaultServiceSuite) TestWithdraw() {
	s.mover.EXPECT().Receive(gomock.Any(), alice, int64(100)).Return(nil)
	s.Require().NoError(s.svc.Deposit(s.ctx, alice, 100))

	s.Run("rejects more than held before any payout", func() {
		err := s.svc.Withdraw(s.ctx, alice, 101)
		s.True(dErrors.Is(err, dErrors.CodeInsufficientBalance))
		s.Equal(int64(100), s.balance(alice))
	})

	s.Run("failed payout burns nothing", func() {
		s.mover.EXPECT().Payout(gomock.Any(), alice, int64(60)).Return(errors.New("rail down"))
		err := s.svc.Withdraw(s.ctx, alice, 60)
		s.True(dErrors.Is(err, dErrors.CodePayoutFailed))
		s.Equal(int64(100), s.balance(alice))
		s.Equal(int64(100), s.svc.Backing())
	})

	s.Run("burns against a successful payout", func() {
		s.mover.EXPECT().Payout(gomock.Any(), alice, int64(60)).Return(nil)
		s.Require().NoError(s.svc.Withdraw(s.ctx, alice, 60))
		s.Equal(int64(40), s.balance(alice))
		s.Equal(int64(40), s.svc.Backing())
	})
}

// TestRoundTrip deposits then withdraws the full amount and checks every
// ledger figure returns to its starting value.
func (s *VaultServiceSuite) TestRoundTrip() {
	s.mover.EXPECT().Receive(gomock.Any(), alice, int64(250)).Return(nil)
	s.mover.EXPECT().Payout(gomock.Any(), alice, int64(250)).Return(nil)

	s.Require().NoError(s.svc.Deposit(s.ctx, alice, 250))
	s.Require().NoError(s.svc.Withdraw(s.ctx, alice, 250))

	s.Zero(s.balance(alice))
	s.Zero(s.svc.Backing())
	supply, err := s.ledger.TotalSupply(s.ctx)
	s.Require().NoError(err)
	s.Zero(supply)
}

func (s *VaultServiceSuite) TestTransferCompliant() {
	s.mover.EXPECT().Receive(gomock.Any(), alice, int64(100)).Return(nil)
	s.Require().NoError(s.svc.Deposit(s.ctx, alice, 100))

	s.Run("both parties must be compliant", func() {
		err := s.svc.TransferCompliant(s.ctx, alice, mallory, 10)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
		err = s.svc.TransferCompliant(s.ctx, mallory, alice, 10)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	})

	s.Run("net effect equals a direct transfer", func() {
		s.Require().NoError(s.svc.TransferCompliant(s.ctx, alice, bob, 30))
		s.Equal(int64(70), s.balance(alice))
		s.Equal(int64(30), s.balance(bob))
		s.Zero(s.balance(vaultAcct))
	})
}

// TestReentrancy drives a second vault operation from inside a value mover
// callback, the only path that can observe the in-progress marker.
func (s *VaultServiceSuite) TestReentrancy() {
	var reentryErr error
	s.mover.EXPECT().Receive(gomock.Any(), alice, int64(100)).DoAndReturn(
		func(ctx context.Context, _ id.AccountID, _ int64) error {
			reentryErr = s.svc.Deposit(ctx, alice, 1)
			return nil
		})

	s.Require().NoError(s.svc.Deposit(s.ctx, alice, 100))
	s.True(dErrors.Is(reentryErr, dErrors.CodeReentrantCall))
	s.Equal(int64(100), s.balance(alice))
}

func (s *VaultServiceSuite) TestSweepStray() {
	s.Run("requires the treasury capability", func() {
		err := s.svc.SweepStray(s.ctx, alice, bob, 10)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("pays out without touching ledger state", func() {
		s.mover.EXPECT().Payout(gomock.Any(), bob, int64(10)).Return(nil)
		s.Require().NoError(s.svc.SweepStray(s.ctx, treasurer, bob, 10))
		s.Zero(s.balance(bob))
		s.Zero(s.svc.Backing())
	})

	s.Run("failed payout surfaces", func() {
		s.mover.EXPECT().Payout(gomock.Any(), bob, int64(10)).Return(errors.New("rail down"))
		err := s.svc.SweepStray(s.ctx, treasurer, bob, 10)
		s.True(dErrors.Is(err, dErrors.CodePayoutFailed))
	})
}
