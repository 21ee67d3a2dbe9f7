package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
	txcontext "clearledger/pkg/platform/tx"
)

// PostgresStore persists compliance records and pending commitments.
// ExpiresAt is stored as Unix seconds with 0 meaning "never expires" so the
// column mirrors the wire representation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) SaveRecord(ctx context.Context, record Record) error {
	var expires int64
	if !record.ExpiresAt.IsZero() {
		expires = record.ExpiresAt.Unix()
	}
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO compliance_records (account, approved, level, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account) DO UPDATE
		SET approved = EXCLUDED.approved,
		    level = EXCLUDED.level,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, record.Account.String(), record.Approved, record.Level, expires, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save compliance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRecord(ctx context.Context, account id.AccountID) (Record, error) {
	var (
		record  Record
		acct    string
		expires int64
	)
	err := s.handle(ctx).QueryRowContext(ctx, `
		SELECT account, approved, level, expires_at, updated_at
		FROM compliance_records
		WHERE account = $1
	`, account.String()).Scan(&acct, &record.Approved, &record.Level, &expires, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find compliance record: %w", err)
	}
	record.Account = id.AccountID(acct)
	if expires != 0 {
		record.ExpiresAt = time.Unix(expires, 0).UTC()
	}
	return record, nil
}

func (s *PostgresStore) SavePending(ctx context.Context, pending PendingRequest) error {
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO pending_requests (account, commitment, requested_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account) DO UPDATE
		SET commitment = EXCLUDED.commitment,
		    requested_at = EXCLUDED.requested_at
	`, pending.Account.String(), pending.Commitment.String(), pending.RequestedAt)
	if err != nil {
		return fmt.Errorf("save pending request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPending(ctx context.Context, account id.AccountID) (PendingRequest, error) {
	var (
		pending PendingRequest
		acct    string
		digest  string
	)
	err := s.handle(ctx).QueryRowContext(ctx, `
		SELECT account, commitment, requested_at
		FROM pending_requests
		WHERE account = $1
	`, account.String()).Scan(&acct, &digest, &pending.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingRequest{}, sentinel.ErrNotFound
	}
	if err != nil {
		return PendingRequest{}, fmt.Errorf("find pending request: %w", err)
	}
	pending.Account = id.AccountID(acct)
	c, err := commitment.Parse(digest)
	if err != nil {
		return PendingRequest{}, fmt.Errorf("stored commitment corrupt for %s: %w", acct, err)
	}
	pending.Commitment = c
	return pending, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, account id.AccountID) error {
	_, err := s.handle(ctx).ExecContext(ctx,
		`DELETE FROM pending_requests WHERE account = $1`, account.String())
	if err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	return nil
}
