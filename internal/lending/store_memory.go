package lending

import (
	"context"
	"sync"

	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	positions map[id.AccountID]Position
	params    *RiskParameters
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{positions: make(map[id.AccountID]Position)}
}

func (s *InMemoryStore) FindPosition(_ context.Context, account id.AccountID) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.positions[account]
	p.Account = account
	return p, nil
}

func (s *InMemoryStore) SavePosition(_ context.Context, position Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[position.Account] = position
	return nil
}

func (s *InMemoryStore) RiskParameters(_ context.Context) (RiskParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.params == nil {
		return RiskParameters{}, sentinel.ErrNotFound
	}
	return *s.params, nil
}

func (s *InMemoryStore) SaveRiskParameters(_ context.Context, params RiskParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := params
	s.params = &p
	return nil
}
