package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
	txcontext "clearledger/pkg/platform/tx"
)

// PostgresStore keeps one row per account in lending_positions and the
// single versioned row in risk_parameters. LastAccrued is stored as Unix
// seconds.
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

func (s *PostgresStore) FindPosition(ctx context.Context, account id.AccountID) (Position, error) {
	p := Position{Account: account}
	var lastAccrued int64
	err := s.handle(ctx).QueryRowContext(ctx, `
		SELECT collateral, debt, last_accrued
		FROM lending_positions
		WHERE account = $1
	`, account.String()).Scan(&p.Collateral, &p.Debt, &lastAccrued)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return Position{}, fmt.Errorf("find position: %w", err)
	}
	if lastAccrued != 0 {
		p.LastAccrued = time.Unix(lastAccrued, 0).UTC()
	}
	return p, nil
}

func (s *PostgresStore) SavePosition(ctx context.Context, position Position) error {
	var lastAccrued int64
	if !position.LastAccrued.IsZero() {
		lastAccrued = position.LastAccrued.Unix()
	}
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO lending_positions (account, collateral, debt, last_accrued)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account) DO UPDATE
		SET collateral = EXCLUDED.collateral,
		    debt = EXCLUDED.debt,
		    last_accrued = EXCLUDED.last_accrued
	`, position.Account.String(), position.Collateral, position.Debt, lastAccrued)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func (s *PostgresStore) RiskParameters(ctx context.Context) (RiskParameters, error) {
	var params RiskParameters
	err := s.handle(ctx).QueryRowContext(ctx, `
		SELECT max_ltv, annual_rate, version, updated_at
		FROM risk_parameters
		WHERE singleton = TRUE
	`).Scan(&params.MaxLTV, &params.AnnualRate, &params.Version, &params.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RiskParameters{}, sentinel.ErrNotFound
	}
	if err != nil {
		return RiskParameters{}, fmt.Errorf("read risk parameters: %w", err)
	}
	return params, nil
}

func (s *PostgresStore) SaveRiskParameters(ctx context.Context, params RiskParameters) error {
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO risk_parameters (singleton, max_ltv, annual_rate, version, updated_at)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE
		SET max_ltv = EXCLUDED.max_ltv,
		    annual_rate = EXCLUDED.annual_rate,
		    version = EXCLUDED.version,
		    updated_at = EXCLUDED.updated_at
	`, params.MaxLTV, params.AnnualRate, params.Version, params.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save risk parameters: %w", err)
	}
	return nil
}
