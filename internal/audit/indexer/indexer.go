// Package indexer materializes the Kafka audit stream into the audit_events
// table. It is the external event-replay collaborator: it only ever observes
// finalized events and reconstructs state by replaying them in sequence
// order.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clearledger/internal/audit"
	"clearledger/internal/platform/kafka/consumer"
	id "clearledger/pkg/domain"
)

// Handler decodes audit payloads and inserts them idempotently.
type Handler struct {
	store  *audit.PostgresStore
	logger *slog.Logger
}

func NewHandler(store *audit.PostgresStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload audit.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		// A malformed payload will never become well-formed on redelivery.
		h.logger.ErrorContext(ctx, "skipping malformed audit payload",
			"error", err,
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "skipping audit payload with bad event id",
			"error", err,
			"offset", msg.Offset,
		)
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return fmt.Errorf("parse event timestamp: %w", err)
	}

	event := audit.Event{
		ID:           eventID,
		Sequence:     payload.Sequence,
		Kind:         audit.Kind(payload.Kind),
		Actor:        id.AccountID(payload.Actor),
		Account:      id.AccountID(payload.Account),
		Counterparty: id.AccountID(payload.Counterparty),
		Amount:       payload.Amount,
		State:        payload.State,
		Device:       payload.Device,
		Timestamp:    ts,
	}
	return h.store.AppendWithID(ctx, eventID, event)
}
