package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	id "clearledger/pkg/domain"
	"clearledger/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
//
// Sequence numbers are assigned at emission, resuming from the store's
// highest committed sequence on the first emission so a restarted process
// never reissues numbers the store already holds. All emissions happen under
// the engine's single-writer lock, so sequence order equals execution order.
type Publisher struct {
	store  Store
	seq    uint64
	seeded bool
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps identity, order, and time onto the event and appends it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if !p.seeded {
		max, err := p.store.MaxSequence(ctx)
		if err != nil {
			return fmt.Errorf("resume audit sequence: %w", err)
		}
		p.seq = max
		p.seeded = true
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	p.seq++
	event.Sequence = p.seq
	return p.store.Append(ctx, event)
}

// List returns the events affecting an account, oldest first.
func (p *Publisher) List(ctx context.Context, account id.AccountID) ([]Event, error) {
	return p.store.ListByAccount(ctx, account)
}
