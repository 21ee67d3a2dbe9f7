//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/internal/registry"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
	"clearledger/pkg/testutil/containers"
)

type RegistryPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *registry.PostgresStore
	ctx   context.Context
}

func TestRegistryPostgresSuite(t *testing.T) {
	suite.Run(t, new(RegistryPostgresSuite))
}

func (s *RegistryPostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = registry.NewPostgresStore(s.pg.DB)
}

func (s *RegistryPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *RegistryPostgresSuite) TestRecordRoundTrip() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := registry.Record{
		Account:   "alice",
		Approved:  true,
		Level:     2,
		ExpiresAt: now.AddDate(1, 0, 0),
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.SaveRecord(s.ctx, record))

	got, err := s.store.FindRecord(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(got.Approved)
	s.Equal(2, got.Level)
	s.Equal(record.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func (s *RegistryPostgresSuite) TestZeroExpiryMeansNever() {
	record := registry.Record{Account: "alice", Approved: true, Level: 1}
	s.Require().NoError(s.store.SaveRecord(s.ctx, record))

	got, err := s.store.FindRecord(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(got.ExpiresAt.IsZero())
	s.True(got.CompliantAt(time.Now().AddDate(100, 0, 0)))
}

func (s *RegistryPostgresSuite) TestUpsertReplacesRecord() {
	s.Require().NoError(s.store.SaveRecord(s.ctx,
		registry.Record{Account: "alice", Approved: true, Level: 1}))
	s.Require().NoError(s.store.SaveRecord(s.ctx,
		registry.Record{Account: "alice", Approved: false, Level: 3}))

	got, err := s.store.FindRecord(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(got.Approved)
	s.Equal(3, got.Level)
}

func (s *RegistryPostgresSuite) TestFindRecordMiss() {
	_, err := s.store.FindRecord(s.ctx, "nobody")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RegistryPostgresSuite) TestPendingLifecycle() {
	c := commitment.Compute([]byte("dossier for alice"))
	pending := registry.PendingRequest{
		Account:     "alice",
		Commitment:  c,
		RequestedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.SavePending(s.ctx, pending))

	got, err := s.store.FindPending(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(c, got.Commitment)

	s.Run("re-request overwrites", func() {
		c2 := commitment.Compute([]byte("revised dossier"))
		pending.Commitment = c2
		s.Require().NoError(s.store.SavePending(s.ctx, pending))
		got, err := s.store.FindPending(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(c2, got.Commitment)
	})

	s.Run("delete consumes", func() {
		s.Require().NoError(s.store.DeletePending(s.ctx, "alice"))
		_, err := s.store.FindPending(s.ctx, "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistryPostgresSuite) TestServiceAgainstPostgres() {
	account := id.AccountID("alice")
	table := authz.NewTable("steward", map[id.Capability][]id.AccountID{
		id.CapabilityComplianceOfficer: {"officer"},
	})
	publisher := audit.NewPublisher(audit.NewInMemoryStore())
	svc, err := registry.NewService(s.ctx, s.store, table, publisher, "officer")
	s.Require().NoError(err)

	c := commitment.Compute([]byte("dossier for alice"))
	s.Require().NoError(svc.RequestVerification(s.ctx, account, c))
	s.Require().NoError(svc.Approve(s.ctx, "officer", account, 2, 0))

	compliant, err := svc.IsCompliant(s.ctx, account)
	s.Require().NoError(err)
	s.True(compliant)
}
