// Package outbox drains the audit outbox table into Kafka. The worker runs
// beside the HTTP server; the core itself never blocks on the broker.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer is the broker-facing side of the worker.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Worker polls unpublished outbox rows in insertion order and publishes
// them. Rows are marked published only after the broker acknowledges, so
// delivery is at-least-once and the indexer deduplicates by event ID.
type Worker struct {
	db       *sql.DB
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewWorker(db *sql.DB, producer Producer, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{db: db, producer: producer, logger: logger, interval: interval, batch: 100}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id          uuid.UUID
	aggregateID string
	payload     []byte
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		n, err := w.drainBatch(ctx)
		if err != nil {
			return err
		}
		if n < w.batch {
			return nil
		}
	}
}

// drainBatch publishes one batch inside a transaction. FOR UPDATE SKIP LOCKED
// lets several workers share the table without double-publishing within a
// single run.
func (w *Worker) drainBatch(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY sequence ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batch)
	if err != nil {
		return 0, fmt.Errorf("select outbox rows: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.aggregateID, &r.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, r := range pending {
		if err := w.producer.Produce(ctx, []byte(r.aggregateID), r.payload); err != nil {
			return 0, fmt.Errorf("publish outbox entry %s: %w", r.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = $2`, time.Now(), r.id); err != nil {
			return 0, fmt.Errorf("mark outbox entry published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return len(pending), nil
}
