package registry

import (
	"context"
	"sync"

	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.AccountID]Record
	pending map[id.AccountID]PendingRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.AccountID]Record),
		pending: make(map[id.AccountID]PendingRequest),
	}
}

func (s *InMemoryStore) SaveRecord(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Account] = record
	return nil
}

func (s *InMemoryStore) FindRecord(_ context.Context, account id.AccountID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[account]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) SavePending(_ context.Context, pending PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[pending.Account] = pending
	return nil
}

func (s *InMemoryStore) FindPending(_ context.Context, account id.AccountID) (PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending, ok := s.pending[account]
	if !ok {
		return PendingRequest{}, sentinel.ErrNotFound
	}
	return pending, nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, account)
	return nil
}
