package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "clearledger/pkg/domain"
	txcontext "clearledger/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// state change they record and published to Kafka by the outbox worker; the
// indexer materializes them into audit_events for querying.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON structure published to Kafka. Field names match Event
// so the indexer can deserialize without a schema registry.
type Payload struct {
	ID           string           `json:"ID"`
	Sequence     uint64           `json:"Sequence"`
	Kind         string           `json:"Kind"`
	Actor        string           `json:"Actor,omitempty"`
	Account      string           `json:"Account"`
	Counterparty string           `json:"Counterparty,omitempty"`
	Amount       int64            `json:"Amount"`
	State        map[string]int64 `json:"State,omitempty"`
	Device       string           `json:"Device,omitempty"`
	Timestamp    string           `json:"Timestamp"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload := Payload{
		ID:           event.ID.String(),
		Sequence:     event.Sequence,
		Kind:         string(event.Kind),
		Actor:        event.Actor.String(),
		Account:      event.Account.String(),
		Counterparty: event.Counterparty.String(),
		Amount:       event.Amount,
		State:        event.State,
		Device:       event.Device,
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, sequence, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), // outbox entry ID
		"account",
		event.Account.String(),
		string(event.Kind),
		event.Sequence,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// MaxSequence reports the highest sequence across the outbox and the
// materialized events, so numbering resumes correctly even when the indexer
// lags behind or the outbox has been trimmed.
func (s *PostgresStore) MaxSequence(ctx context.Context) (uint64, error) {
	query := `
		SELECT GREATEST(
			COALESCE((SELECT MAX(sequence) FROM outbox), 0),
			COALESCE((SELECT MAX(sequence) FROM audit_events), 0)
		)
	`
	var max uint64
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max audit sequence: %w", err)
	}
	return max, nil
}

// AppendWithID inserts an audit event into the audit_events table with a
// specific ID. Used by the indexer to materialize events for querying.
// Idempotent: duplicate inserts are ignored via ON CONFLICT DO NOTHING.
func (s *PostgresStore) AppendWithID(ctx context.Context, eventID uuid.UUID, event Event) error {
	stateBytes, err := json.Marshal(event.State)
	if err != nil {
		return fmt.Errorf("marshal event state: %w", err)
	}
	query := `
		INSERT INTO audit_events (
			id, sequence, kind, actor, account, counterparty,
			amount, state, device, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		event.Sequence,
		string(event.Kind),
		event.Actor.String(),
		event.Account.String(),
		event.Counterparty.String(),
		event.Amount,
		stateBytes,
		event.Device,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByAccount reads materialized events for an account, oldest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, account id.AccountID) ([]Event, error) {
	query := `
		SELECT id, sequence, kind, actor, account, counterparty, amount, state, device, timestamp
		FROM audit_events
		WHERE account = $1 OR counterparty = $1 OR actor = $1
		ORDER BY sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			kind       string
			actor      string
			acct       string
			cpty       string
			stateBytes []byte
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &kind, &actor, &acct, &cpty, &e.Amount, &stateBytes, &e.Device, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = Kind(kind)
		e.Actor = id.AccountID(actor)
		e.Account = id.AccountID(acct)
		e.Counterparty = id.AccountID(cpty)
		if len(stateBytes) > 0 {
			if err := json.Unmarshal(stateBytes, &e.State); err != nil {
				return nil, fmt.Errorf("unmarshal event state: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
