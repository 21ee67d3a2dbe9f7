package token

import (
	"context"
	"fmt"
	"sync"

	id "clearledger/pkg/domain"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	holdings map[id.AccountID]Holding
	supply   int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{holdings: make(map[id.AccountID]Holding)}
}

func (s *InMemoryStore) Find(_ context.Context, account id.AccountID) (Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.holdings[account]
	h.Account = account
	return h, nil
}

func (s *InMemoryStore) SetExempt(_ context.Context, account id.AccountID, exempt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.holdings[account]
	h.Account = account
	h.Exempt = exempt
	s.holdings[account] = h
	return nil
}

func (s *InMemoryStore) TotalSupply(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, nil
}

func (s *InMemoryStore) Apply(_ context.Context, deltas map[id.AccountID]int64, supplyDelta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate the whole batch before touching anything so a bad delta
	// cannot leave a partial write behind.
	for account, delta := range deltas {
		if s.holdings[account].Balance+delta < 0 {
			return fmt.Errorf("apply would drive %s negative", account)
		}
	}
	for account, delta := range deltas {
		h := s.holdings[account]
		h.Account = account
		h.Balance += delta
		s.holdings[account] = h
	}
	s.supply += supplyDelta
	return nil
}
