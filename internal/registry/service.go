package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clearledger/internal/audit"
	"clearledger/internal/authz"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/platform/sentinel"
	"clearledger/pkg/requestcontext"
)

// Service enforces the per-account verification state machine:
//
//	UNVERIFIED -(request)-> PENDING -(approve)-> VERIFIED -(revoke)-> UNVERIFIED
//
// A VERIFIED account may re-request, creating a new pending commitment
// without losing its current status until the next approval overwrites it.
type Service struct {
	store     Store
	authz     *authz.Table
	publisher *audit.Publisher
}

// NewService wires the registry and pre-seeds the bootstrap admin as
// compliant. The seed is the one deliberate exception to the officer gate:
// without it no officer could ever satisfy "approver must be compliant".
func NewService(ctx context.Context, store Store, table *authz.Table, publisher *audit.Publisher, bootstrapAdmin id.AccountID) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if table == nil {
		return nil, errors.New("authz table is required")
	}
	if publisher == nil {
		return nil, errors.New("audit publisher is required")
	}
	s := &Service{store: store, authz: table, publisher: publisher}
	if !bootstrapAdmin.IsZero() {
		if err := store.SaveRecord(ctx, Record{
			Account:   bootstrapAdmin,
			Approved:  true,
			UpdatedAt: requestcontext.Now(ctx),
		}); err != nil {
			return nil, fmt.Errorf("seed bootstrap admin: %w", err)
		}
	}
	return s, nil
}

// RequestVerification stores or overwrites the pending commitment for an
// account. The caller needs no prior verification; last write wins.
func (s *Service) RequestVerification(ctx context.Context, account id.AccountID, c commitment.Commitment) error {
	if c.IsZero() {
		return dErrors.New(dErrors.CodeInvalidCommitment, "commitment cannot be the zero value")
	}
	if err := s.store.SavePending(ctx, PendingRequest{
		Account:     account,
		Commitment:  c,
		RequestedAt: requestcontext.Now(ctx),
	}); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "store pending request", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindVerificationRequested,
		Actor:   account,
		Account: account,
	})
}

// Approve grants compliance to an account with a matching pending
// commitment. The officer must hold the compliance-officer capability and
// must itself be currently compliant.
func (s *Service) Approve(ctx context.Context, officer, account id.AccountID, level int, expiresAt int64) error {
	if err := s.requireOfficer(ctx, officer); err != nil {
		return err
	}
	if _, err := s.store.FindPending(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNoPendingRequest, "no pending verification request for account")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "find pending request", err)
	}

	now := requestcontext.Now(ctx)
	record := Record{
		Account:   account,
		Approved:  true,
		Level:     level,
		UpdatedAt: now,
	}
	if expiresAt != 0 {
		record.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	if err := s.store.SaveRecord(ctx, record); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save compliance record", err)
	}
	// The pending commitment is consumed exactly once: a second Approve on
	// the same request fails NoPendingRequest above.
	if err := s.store.DeletePending(ctx, account); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "clear pending request", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindVerificationApproved,
		Actor:   officer,
		Account: account,
		State: map[string]int64{
			"level":      int64(level),
			"expires_at": expiresAt,
		},
	})
}

// Revoke clears the approval flag. Level and expiry keep their stored values;
// IsCompliant turns false regardless of which approval created the record.
func (s *Service) Revoke(ctx context.Context, officer, account id.AccountID) error {
	if err := s.requireOfficer(ctx, officer); err != nil {
		return err
	}
	record, err := s.store.FindRecord(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no compliance record for account")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "find compliance record", err)
	}
	record.Approved = false
	record.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.SaveRecord(ctx, record); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "save compliance record", err)
	}
	return s.publisher.Emit(ctx, audit.Event{
		Kind:    audit.KindVerificationRevoked,
		Actor:   officer,
		Account: account,
	})
}

// IsCompliant evaluates the expiry-aware predicate. Absent records are
// non-compliant. Safe to call from any component; never mutates.
func (s *Service) IsCompliant(ctx context.Context, account id.AccountID) (bool, error) {
	record, err := s.store.FindRecord(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "find compliance record", err)
	}
	return record.CompliantAt(requestcontext.Now(ctx)), nil
}

// GetRecord returns the stored record for status reads.
func (s *Service) GetRecord(ctx context.Context, account id.AccountID) (Record, error) {
	record, err := s.store.FindRecord(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.New(dErrors.CodeNotFound, "no compliance record for account")
		}
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "find compliance record", err)
	}
	return record, nil
}

// requireOfficer gates approve/revoke: capability plus current compliance of
// the officer itself. The bootstrap admin passes because its record is
// seeded approved at construction, which breaks the otherwise-circular
// "first officer" problem.
func (s *Service) requireOfficer(ctx context.Context, officer id.AccountID) error {
	if err := s.authz.Require(ctx, officer, id.CapabilityComplianceOfficer); err != nil {
		return err
	}
	compliant, err := s.IsCompliant(ctx, officer)
	if err != nil {
		return err
	}
	if !compliant {
		return dErrors.New(dErrors.CodeNotCompliant,
			fmt.Sprintf("officer %s is not currently compliant", officer))
	}
	return nil
}
