//go:build integration

package token_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/token"
	id "clearledger/pkg/domain"
	txcontext "clearledger/pkg/platform/tx"
	"clearledger/pkg/testutil/containers"
)

type TokenPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *token.PostgresStore
	ctx   context.Context
}

func TestTokenPostgresSuite(t *testing.T) {
	suite.Run(t, new(TokenPostgresSuite))
}

func (s *TokenPostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = token.NewPostgresStore(s.pg.DB)
}

func (s *TokenPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *TokenPostgresSuite) TestUnknownAccountIsZero() {
	h, err := s.store.Find(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Zero(h.Balance)
	s.False(h.Exempt)

	supply, err := s.store.TotalSupply(s.ctx)
	s.Require().NoError(err)
	s.Zero(supply)
}

func (s *TokenPostgresSuite) TestApplyDeltas() {
	s.Require().NoError(s.store.Apply(s.ctx,
		map[id.AccountID]int64{"alice": 100}, 100))
	s.Require().NoError(s.store.Apply(s.ctx,
		map[id.AccountID]int64{"alice": -30, "bob": 30}, 0))

	alice, err := s.store.Find(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(70), alice.Balance)

	bob, err := s.store.Find(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(int64(30), bob.Balance)

	supply, err := s.store.TotalSupply(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(100), supply)
}

// TestApplyIsAtomicUnderTx drives both legs of a transfer inside one
// transaction and checks that a constraint violation rolls both back.
func (s *TokenPostgresSuite) TestApplyIsAtomicUnderTx() {
	s.Require().NoError(s.store.Apply(s.ctx,
		map[id.AccountID]int64{"alice": 50}, 50))

	tx, err := s.pg.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	ctx := txcontext.WithTx(s.ctx, tx)

	// Second delta violates the non-negative balance check.
	err = s.store.Apply(ctx, map[id.AccountID]int64{"bob": 10}, 0)
	s.Require().NoError(err)
	err = s.store.Apply(ctx, map[id.AccountID]int64{"alice": -60}, 0)
	s.Require().Error(err)
	s.Require().NoError(tx.Rollback())

	alice, err := s.store.Find(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(50), alice.Balance)
	bob, err := s.store.Find(s.ctx, "bob")
	s.Require().NoError(err)
	s.Zero(bob.Balance)
}

func (s *TokenPostgresSuite) TestExemptFlag() {
	s.Require().NoError(s.store.SetExempt(s.ctx, "system:vault", true))
	h, err := s.store.Find(s.ctx, "system:vault")
	s.Require().NoError(err)
	s.True(h.Exempt)

	s.Run("flag survives balance changes", func() {
		s.Require().NoError(s.store.Apply(s.ctx,
			map[id.AccountID]int64{"system:vault": 500}, 500))
		h, err := s.store.Find(s.ctx, "system:vault")
		s.Require().NoError(err)
		s.True(h.Exempt)
		s.Equal(int64(500), h.Balance)
	})

	s.Run("clearing keeps the balance", func() {
		s.Require().NoError(s.store.SetExempt(s.ctx, "system:vault", false))
		h, err := s.store.Find(s.ctx, "system:vault")
		s.Require().NoError(err)
		s.False(h.Exempt)
		s.Equal(int64(500), h.Balance)
	})
}
