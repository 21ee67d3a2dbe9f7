package lending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/internal/lending"
	"clearledger/internal/token"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

const (
	steward      = id.AccountID("steward")
	riskOfficer  = id.AccountID("risk-officer")
	facilityAcct = id.AccountID("system:lending")
	alice        = id.AccountID("alice")
	mallory      = id.AccountID("mallory")
)

type staticCompliance map[id.AccountID]bool

func (c staticCompliance) IsCompliant(_ context.Context, account id.AccountID) (bool, error) {
	return c[account], nil
}

type LendingServiceSuite struct {
	suite.Suite
	svc    *lending.Service
	ledger *token.Service
	events *audit.InMemoryStore
	now    time.Time
	ctx    context.Context
}

func TestLendingServiceSuite(t *testing.T) {
	suite.Run(t, new(LendingServiceSuite))
}

func (s *LendingServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.events = audit.NewInMemoryStore()

	compliance := staticCompliance{alice: true, riskOfficer: true}
	table := authz.NewTable(steward, map[id.Capability][]id.AccountID{
		id.CapabilityMinter:      {steward},
		id.CapabilityTokenAdmin:  {steward},
		id.CapabilityRiskOfficer: {riskOfficer},
	})
	publisher := audit.NewPublisher(s.events)

	ledger, err := token.NewService(token.NewInMemoryStore(), table, compliance, publisher)
	s.Require().NoError(err)
	s.ledger = ledger
	s.Require().NoError(ledger.SetExempt(s.ctx, steward, facilityAcct, true))
	s.Require().NoError(ledger.Mint(s.ctx, steward, facilityAcct, 100_000))
	s.Require().NoError(ledger.Mint(s.ctx, steward, alice, 1_000))

	svc, err := lending.NewService(s.ctx, facilityAcct, lending.NewInMemoryStore(),
		ledger, compliance, table, publisher,
		lending.RiskParameters{MaxLTV: 7_500, AnnualRate: 500})
	s.Require().NoError(err)
	s.svc = svc
}

// at returns a request context with the clock pinned d past the suite start.
func (s *LendingServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *LendingServiceSuite) balance(account id.AccountID) int64 {
	b, err := s.ledger.BalanceOf(s.ctx, account)
	s.Require().NoError(err)
	return b
}

func (s *LendingServiceSuite) position(account id.AccountID) lending.Position {
	p, err := s.svc.GetAccount(s.ctx, account)
	s.Require().NoError(err)
	return p
}

func (s *LendingServiceSuite) TestDepositCollateral() {
	s.Run("rejects non-compliant callers", func() {
		err := s.svc.DepositCollateral(s.ctx, mallory, 100)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	})

	s.Run("rejects non-positive amounts", func() {
		err := s.svc.DepositCollateral(s.ctx, alice, 0)
		s.True(dErrors.Is(err, dErrors.CodeAmountZero))
	})

	s.Run("cannot pledge more than held", func() {
		err := s.svc.DepositCollateral(s.ctx, alice, 1_001)
		s.True(dErrors.Is(err, dErrors.CodeInsufficientBalance))
		s.Zero(s.position(alice).Collateral)
	})

	s.Run("moves tokens into facility custody", func() {
		s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))
		s.Equal(int64(600), s.balance(alice))
		s.Equal(int64(100_400), s.balance(facilityAcct))
		s.Equal(int64(400), s.position(alice).Collateral)
	})
}

func (s *LendingServiceSuite) TestBorrow() {
	s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))

	s.Run("rejects borrowing past the loan-to-value ceiling", func() {
		err := s.svc.Borrow(s.ctx, alice, 301)
		s.True(dErrors.Is(err, dErrors.CodeBorrowTooLarge))
		s.Zero(s.position(alice).Debt)
	})

	s.Run("allows borrowing exactly to the ceiling", func() {
		s.Require().NoError(s.svc.Borrow(s.ctx, alice, 300))
		s.Equal(int64(900), s.balance(alice))
		s.Equal(int64(300), s.position(alice).Debt)
	})

	s.Run("further borrowing needs headroom", func() {
		err := s.svc.Borrow(s.ctx, alice, 1)
		s.True(dErrors.Is(err, dErrors.CodeBorrowTooLarge))
	})
}

func (s *LendingServiceSuite) TestWithdrawCollateral() {
	s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))
	s.Require().NoError(s.svc.Borrow(s.ctx, alice, 150))

	s.Run("cannot release more than pledged", func() {
		err := s.svc.WithdrawCollateral(s.ctx, alice, 401)
		s.True(dErrors.Is(err, dErrors.CodeInsufficientCollateral))
	})

	s.Run("cannot release past the debt cover", func() {
		// Debt 150 needs collateral of at least 200 at 75 percent.
		err := s.svc.WithdrawCollateral(s.ctx, alice, 201)
		s.True(dErrors.Is(err, dErrors.CodeInsufficientCollateral))
		s.Equal(int64(400), s.position(alice).Collateral)
	})

	s.Run("releases down to the cover exactly", func() {
		s.Require().NoError(s.svc.WithdrawCollateral(s.ctx, alice, 200))
		s.Equal(int64(200), s.position(alice).Collateral)
		s.Equal(int64(950), s.balance(alice))
	})
}

func (s *LendingServiceSuite) TestRepay() {
	s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))

	s.Run("nothing to repay without debt", func() {
		err := s.svc.Repay(s.ctx, alice, 100)
		s.True(dErrors.Is(err, dErrors.CodeNoDebt))
	})

	s.Require().NoError(s.svc.Borrow(s.ctx, alice, 300))

	s.Run("partial payment reduces debt", func() {
		s.Require().NoError(s.svc.Repay(s.ctx, alice, 100))
		s.Equal(int64(200), s.position(alice).Debt)
		s.Equal(int64(800), s.balance(alice))
	})

	s.Run("overpayment refunds the difference", func() {
		s.Require().NoError(s.svc.Repay(s.ctx, alice, 500))
		s.Zero(s.position(alice).Debt)
		// Only the remaining 200 of debt is kept; 300 comes back.
		s.Equal(int64(600), s.balance(alice))

		events := s.events.All()
		last := events[len(events)-1]
		s.Equal(audit.KindRepaid, last.Kind)
		s.Equal(int64(300), last.State["refund"])
	})
}

// TestAccrueFirst checks that interest is folded into the position before any
// limit is evaluated or figure reported.
func (s *LendingServiceSuite) TestAccrueFirst() {
	year := 365 * 24 * time.Hour
	s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))
	s.Require().NoError(s.svc.Borrow(s.ctx, alice, 290))

	s.Run("reads project debt without persisting", func() {
		p, err := s.svc.GetAccount(s.at(year), alice)
		s.Require().NoError(err)
		// 290 at 5 percent over a year accrues 14 (truncated).
		s.Equal(int64(304), p.Debt)
		s.Equal(s.now, p.LastAccrued)

		s.Equal(int64(290), s.position(alice).Debt)
	})

	s.Run("accrued debt consumes borrow headroom", func() {
		// Ceiling is 300; projected debt 304 already exceeds it.
		err := s.svc.Borrow(s.at(year), alice, 1)
		s.True(dErrors.Is(err, dErrors.CodeBorrowTooLarge))
		// The failed borrow persisted nothing.
		s.Equal(int64(290), s.position(alice).Debt)
	})

	s.Run("repaying to zero pins the accrual clock", func() {
		later := s.now.Add(2 * year)
		ctx := requestcontext.WithTime(context.Background(), later)
		// Debt after two years of accrual is 319; 400 clears it with change.
		s.Require().NoError(s.svc.Repay(ctx, alice, 400))
		p, err := s.svc.GetAccount(ctx, alice)
		s.Require().NoError(err)
		s.Zero(p.Debt)
		s.Equal(later, p.LastAccrued)
	})
}

func (s *LendingServiceSuite) TestSetRiskParameters() {
	s.Run("requires the risk-officer capability", func() {
		err := s.svc.SetRiskParameters(s.ctx, alice, 5_000, 100)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("enforces the hard ceilings", func() {
		err := s.svc.SetRiskParameters(s.ctx, riskOfficer, lending.MaxLTVCeiling+1, 100)
		s.True(dErrors.Is(err, dErrors.CodeParameterOutOfRange))
		err = s.svc.SetRiskParameters(s.ctx, riskOfficer, 5_000, lending.AnnualRateCeiling+1)
		s.True(dErrors.Is(err, dErrors.CodeParameterOutOfRange))
	})

	s.Run("bumps the version on every change", func() {
		s.Require().NoError(s.svc.SetRiskParameters(s.ctx, riskOfficer, 5_000, 100))
		params, err := s.svc.GetRiskParameters(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(5_000), params.MaxLTV)
		s.Equal(int64(100), params.AnnualRate)
		s.Equal(int64(2), params.Version)
	})

	s.Run("new ceiling binds subsequent borrows", func() {
		s.Require().NoError(s.svc.DepositCollateral(s.ctx, alice, 400))
		err := s.svc.Borrow(s.ctx, alice, 201)
		s.True(dErrors.Is(err, dErrors.CodeBorrowTooLarge))
		s.Require().NoError(s.svc.Borrow(s.ctx, alice, 200))
	})
}
