package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "clearledger/pkg/domain"
	txcontext "clearledger/pkg/platform/tx"
)

// PostgresStore keeps one row per account in ledger_balances plus a
// single-row ledger_supply record. A CHECK (balance >= 0) constraint backs
// up the service-level validation.
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

func (s *PostgresStore) Find(ctx context.Context, account id.AccountID) (Holding, error) {
	h := Holding{Account: account}
	err := s.handle(ctx).QueryRowContext(ctx, `
		SELECT balance, exempt FROM ledger_balances WHERE account = $1
	`, account.String()).Scan(&h.Balance, &h.Exempt)
	if errors.Is(err, sql.ErrNoRows) {
		return h, nil
	}
	if err != nil {
		return Holding{}, fmt.Errorf("find holding: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) SetExempt(ctx context.Context, account id.AccountID, exempt bool) error {
	_, err := s.handle(ctx).ExecContext(ctx, `
		INSERT INTO ledger_balances (account, balance, exempt)
		VALUES ($1, 0, $2)
		ON CONFLICT (account) DO UPDATE SET exempt = EXCLUDED.exempt
	`, account.String(), exempt)
	if err != nil {
		return fmt.Errorf("set exempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) TotalSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := s.handle(ctx).QueryRowContext(ctx,
		`SELECT supply FROM ledger_supply WHERE singleton = TRUE`).Scan(&supply)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read total supply: %w", err)
	}
	return supply, nil
}

func (s *PostgresStore) Apply(ctx context.Context, deltas map[id.AccountID]int64, supplyDelta int64) error {
	h := s.handle(ctx)
	for account, delta := range deltas {
		_, err := h.ExecContext(ctx, `
			INSERT INTO ledger_balances (account, balance, exempt)
			VALUES ($1, $2, FALSE)
			ON CONFLICT (account) DO UPDATE
			SET balance = ledger_balances.balance + EXCLUDED.balance
		`, account.String(), delta)
		if err != nil {
			return fmt.Errorf("apply delta for %s: %w", account, err)
		}
	}
	if supplyDelta != 0 {
		_, err := h.ExecContext(ctx, `
			INSERT INTO ledger_supply (singleton, supply)
			VALUES (TRUE, $1)
			ON CONFLICT (singleton) DO UPDATE
			SET supply = ledger_supply.supply + EXCLUDED.supply
		`, supplyDelta)
		if err != nil {
			return fmt.Errorf("apply supply delta: %w", err)
		}
	}
	return nil
}
