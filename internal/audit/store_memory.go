package audit

import (
	"context"
	"sync"

	id "clearledger/pkg/domain"
)

// InMemoryStore keeps events in insertion order. Used by tests and dev mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, account id.AccountID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Account == account || e.Counterparty == account || e.Actor == account {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) MaxSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max uint64
	for _, e := range s.events {
		if e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

// All returns every event in emission order. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
