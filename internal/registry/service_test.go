package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

const (
	officer = id.AccountID("officer-1")
	alice   = id.AccountID("alice")
	bob     = id.AccountID("bob")
)

type RegistryServiceSuite struct {
	suite.Suite
	svc    *Service
	events *audit.InMemoryStore
	ctx    context.Context
	now    time.Time
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.events = audit.NewInMemoryStore()

	table := authz.NewTable(officer, map[id.Capability][]id.AccountID{
		id.CapabilityComplianceOfficer: {officer},
	})
	svc, err := NewService(s.ctx, NewInMemoryStore(), table, audit.NewPublisher(s.events), officer)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *RegistryServiceSuite) request(account id.AccountID) {
	c := commitment.Compute([]byte("dossier for " + account.String()))
	s.Require().NoError(s.svc.RequestVerification(s.ctx, account, c))
}

func (s *RegistryServiceSuite) TestRequestVerification() {
	s.Run("rejects zero commitment", func() {
		err := s.svc.RequestVerification(s.ctx, alice, commitment.Commitment{})
		s.True(dErrors.Is(err, dErrors.CodeInvalidCommitment))
	})

	s.Run("stores pending and emits event", func() {
		s.request(alice)
		events := s.events.All()
		s.Equal(audit.KindVerificationRequested, events[len(events)-1].Kind)
	})

	s.Run("last request wins on re-request", func() {
		first := commitment.Compute([]byte("v1"))
		second := commitment.Compute([]byte("v2"))
		s.Require().NoError(s.svc.RequestVerification(s.ctx, bob, first))
		s.Require().NoError(s.svc.RequestVerification(s.ctx, bob, second))

		s.Require().NoError(s.svc.Approve(s.ctx, officer, bob, 1, 0))
		compliant, err := s.svc.IsCompliant(s.ctx, bob)
		s.NoError(err)
		s.True(compliant)
	})
}

func (s *RegistryServiceSuite) TestApprove() {
	s.Run("without pending request fails", func() {
		err := s.svc.Approve(s.ctx, officer, alice, 1, 0)
		s.True(dErrors.Is(err, dErrors.CodeNoPendingRequest))
	})

	s.Run("grants compliance", func() {
		s.request(alice)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 2, 0))

		compliant, err := s.svc.IsCompliant(s.ctx, alice)
		s.NoError(err)
		s.True(compliant)

		record, err := s.svc.GetRecord(s.ctx, alice)
		s.NoError(err)
		s.Equal(2, record.Level)
		s.True(record.ExpiresAt.IsZero())
	})

	s.Run("pending request is consumed exactly once", func() {
		s.request(bob)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, bob, 1, 0))
		err := s.svc.Approve(s.ctx, officer, bob, 1, 0)
		s.True(dErrors.Is(err, dErrors.CodeNoPendingRequest))
	})

	s.Run("requires the compliance officer capability", func() {
		s.request(alice)
		err := s.svc.Approve(s.ctx, alice, alice, 1, 0)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("officer must itself be compliant", func() {
		s.request(alice)
		// Revoking the officer's own record removes its standing.
		s.Require().NoError(s.svc.Revoke(s.ctx, officer, officer))
		err := s.svc.Approve(s.ctx, officer, alice, 1, 0)
		s.True(dErrors.Is(err, dErrors.CodeNotCompliant))
	})
}

func (s *RegistryServiceSuite) TestExpiry() {
	s.Run("approval with future expiry is compliant until then", func() {
		s.request(alice)
		expires := s.now.Add(24 * time.Hour).Unix()
		s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 1, expires))

		compliant, err := s.svc.IsCompliant(s.ctx, alice)
		s.NoError(err)
		s.True(compliant)

		later := requestcontext.WithTime(context.Background(), s.now.Add(25*time.Hour))
		compliant, err = s.svc.IsCompliant(later, alice)
		s.NoError(err)
		s.False(compliant)
	})

	s.Run("boundary instant is still compliant", func() {
		s.request(bob)
		expires := s.now.Add(time.Hour)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, bob, 1, expires.Unix()))

		atExpiry := requestcontext.WithTime(context.Background(), expires)
		compliant, err := s.svc.IsCompliant(atExpiry, bob)
		s.NoError(err)
		s.True(compliant)
	})
}

func (s *RegistryServiceSuite) TestRevoke() {
	s.Run("absent record fails", func() {
		err := s.svc.Revoke(s.ctx, officer, alice)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("clears approval but keeps level", func() {
		s.request(alice)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 3, 0))
		s.Require().NoError(s.svc.Revoke(s.ctx, officer, alice))

		compliant, err := s.svc.IsCompliant(s.ctx, alice)
		s.NoError(err)
		s.False(compliant)

		record, err := s.svc.GetRecord(s.ctx, alice)
		s.NoError(err)
		s.False(record.Approved)
		s.Equal(3, record.Level)
	})

	s.Run("revoked account can be re-approved", func() {
		s.request(alice)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 1, 0))
		s.Require().NoError(s.svc.Revoke(s.ctx, officer, alice))

		s.request(alice)
		s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 1, 0))
		compliant, err := s.svc.IsCompliant(s.ctx, alice)
		s.NoError(err)
		s.True(compliant)
	})
}

func (s *RegistryServiceSuite) TestIsCompliant() {
	s.Run("unknown account is not compliant", func() {
		compliant, err := s.svc.IsCompliant(s.ctx, id.AccountID("stranger"))
		s.NoError(err)
		s.False(compliant)
	})

	s.Run("bootstrap admin is seeded compliant", func() {
		compliant, err := s.svc.IsCompliant(s.ctx, officer)
		s.NoError(err)
		s.True(compliant)
	})
}

func (s *RegistryServiceSuite) TestAuditOrdering() {
	s.request(alice)
	s.Require().NoError(s.svc.Approve(s.ctx, officer, alice, 1, 0))
	s.Require().NoError(s.svc.Revoke(s.ctx, officer, alice))

	events := s.events.All()
	s.Require().Len(events, 3)
	for i, e := range events {
		s.Equal(uint64(i+1), e.Sequence)
	}
	s.Equal(audit.KindVerificationRequested, events[0].Kind)
	s.Equal(audit.KindVerificationApproved, events[1].Kind)
	s.Equal(audit.KindVerificationRevoked, events[2].Kind)
}
