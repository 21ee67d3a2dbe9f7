package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/internal/core"
	"clearledger/internal/lending"
	"clearledger/internal/registry"
	"clearledger/internal/token"
	"clearledger/internal/vault"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

const (
	steward      = id.AccountID("steward")
	officer      = id.AccountID("officer")
	vaultAcct    = id.AccountID("system:vault")
	facilityAcct = id.AccountID("system:lending")
	alice        = id.AccountID("alice")
	bob          = id.AccountID("bob")
)

// acceptAllMover stands in for the external value rail and accepts every
// movement. onReceive, when set, runs during the receipt so tests can model
// a mover that calls back into the core.
type acceptAllMover struct {
	onReceive func(ctx context.Context, from id.AccountID, amount int64)
}

func (m *acceptAllMover) Receive(ctx context.Context, from id.AccountID, amount int64) error {
	if m.onReceive != nil {
		m.onReceive(ctx, from, amount)
	}
	return nil
}
func (m *acceptAllMover) Payout(context.Context, id.AccountID, int64) error { return nil }

type EngineSuite struct {
	suite.Suite
	engine *core.Engine
	events *audit.InMemoryStore
	mover  *acceptAllMover
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.events = audit.NewInMemoryStore()

	table := authz.NewTable(steward, map[id.Capability][]id.AccountID{
		id.CapabilityComplianceOfficer: {officer},
		id.CapabilityTokenAdmin:        {steward},
		id.CapabilityMinter:            {vaultAcct, steward},
		id.CapabilityTreasury:          {steward},
		id.CapabilityRiskOfficer:       {steward},
	})
	publisher := audit.NewPublisher(s.events)

	reg, err := registry.NewService(s.ctx, registry.NewInMemoryStore(), table, publisher, officer)
	s.Require().NoError(err)

	tok, err := token.NewService(token.NewInMemoryStore(), table, reg, publisher)
	s.Require().NoError(err)
	s.Require().NoError(tok.SetExempt(s.ctx, steward, vaultAcct, true))
	s.Require().NoError(tok.SetExempt(s.ctx, steward, facilityAcct, true))

	s.mover = &acceptAllMover{}
	vlt, err := vault.NewService(vaultAcct, tok, reg, table, publisher, s.mover)
	s.Require().NoError(err)

	lnd, err := lending.NewService(s.ctx, facilityAcct, lending.NewInMemoryStore(),
		tok, reg, table, publisher,
		lending.RiskParameters{MaxLTV: 7_500, AnnualRate: 500})
	s.Require().NoError(err)
	s.Require().NoError(tok.Mint(s.ctx, steward, facilityAcct, 1_000_000))

	engine, err := core.NewEngine(nil, reg, tok, vlt, lnd, table)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineSuite) approve(account id.AccountID) {
	c := commitment.Compute([]byte("dossier for " + account.String()))
	s.Require().NoError(s.engine.RequestVerification(s.ctx, account, c))
	s.Require().NoError(s.engine.ApproveVerification(s.ctx, officer, account, 2, 0))
}

func (s *EngineSuite) balance(account id.AccountID) int64 {
	b, err := s.engine.BalanceOf(s.ctx, account)
	s.Require().NoError(err)
	return b
}

// TestLifecycle drives one participant through the full path: verification,
// funding, lending, revocation, and exit.
func (s *EngineSuite) TestLifecycle() {
	s.approve(alice)
	s.approve(bob)

	s.Require().NoError(s.engine.VaultDeposit(s.ctx, alice, 1_000))
	s.Require().NoError(s.engine.Transfer(s.ctx, alice, bob, 200))
	s.Equal(int64(800), s.balance(alice))
	s.Equal(int64(200), s.balance(bob))

	s.Require().NoError(s.engine.DepositCollateral(s.ctx, alice, 400))
	s.Require().NoError(s.engine.Borrow(s.ctx, alice, 300))
	s.Equal(int64(700), s.balance(alice))

	s.Require().NoError(s.engine.RevokeVerification(s.ctx, officer, bob))
	err := s.engine.Transfer(s.ctx, alice, bob, 10)
	s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	err = s.engine.Transfer(s.ctx, bob, alice, 10)
	s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	s.Equal(int64(200), s.balance(bob))

	s.Require().NoError(s.engine.Repay(s.ctx, alice, 300))
	s.Require().NoError(s.engine.WithdrawCollateral(s.ctx, alice, 400))
	s.Require().NoError(s.engine.VaultWithdraw(s.ctx, alice, 800))
	s.Zero(s.balance(alice))
}

// TestConcurrentMutations hammers the engine from many goroutines and checks
// that balances still sum to the supply afterwards.
func (s *EngineSuite) TestConcurrentMutations() {
	s.approve(alice)
	s.approve(bob)
	s.Require().NoError(s.engine.VaultDeposit(s.ctx, alice, 10_000))
	s.Require().NoError(s.engine.VaultDeposit(s.ctx, bob, 10_000))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		from, to := alice, bob
		if i%2 == 0 {
			from, to = bob, alice
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// Failures (insufficient balance under contention) are fine;
				// only conservation matters here.
				_ = s.engine.Transfer(s.ctx, from, to, 7)
				_ = s.engine.VaultDeposit(s.ctx, from, 3)
				_ = s.engine.VaultWithdraw(s.ctx, from, 3)
			}
		}()
	}
	wg.Wait()

	supply, err := s.engine.TotalSupply(s.ctx)
	s.Require().NoError(err)
	held := s.balance(alice) + s.balance(bob) + s.balance(vaultAcct) + s.balance(facilityAcct)
	s.Equal(supply, held)
}

// TestSequencing checks that audit sequences are strictly increasing even
// when emitted from concurrent operations.
func (s *EngineSuite) TestSequencing() {
	s.approve(alice)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = s.engine.VaultDeposit(s.ctx, alice, 1)
			}
		}()
	}
	wg.Wait()

	events := s.events.All()
	s.Require().NotEmpty(events)
	for i := 1; i < len(events); i++ {
		s.Equal(events[i-1].Sequence+1, events[i].Sequence)
	}
}

func (s *EngineSuite) TestCapabilityAdministration() {
	err := s.engine.GrantCapability(s.ctx, alice, alice, id.CapabilityMinter)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.engine.GrantCapability(s.ctx, steward, alice, id.CapabilityMinter))
	s.True(s.engine.HoldsCapability(s.ctx, alice, id.CapabilityMinter))

	s.Require().NoError(s.engine.RevokeCapability(s.ctx, steward, alice, id.CapabilityMinter))
	s.False(s.engine.HoldsCapability(s.ctx, alice, id.CapabilityMinter))
}

// TestMoverReentryRejected drives a value mover that calls back into the
// engine mid-deposit. The callback must be refused with a reentrancy error
// rather than deadlocking on the write lock.
func (s *EngineSuite) TestMoverReentryRejected() {
	s.approve(alice)
	s.approve(bob)
	s.Require().NoError(s.engine.Mint(s.ctx, steward, alice, 500))

	var reentryErr error
	s.mover.onReceive = func(ctx context.Context, _ id.AccountID, _ int64) {
		reentryErr = s.engine.Transfer(ctx, alice, bob, 10)
	}
	s.Require().NoError(s.engine.VaultDeposit(s.ctx, alice, 100))

	s.Require().Error(reentryErr)
	s.True(dErrors.Is(reentryErr, dErrors.CodeReentrantCall))
	s.Equal(int64(600), s.balance(alice))
	s.Equal(int64(0), s.balance(bob))
}
