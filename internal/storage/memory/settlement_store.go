package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// SettlementStore is an in-memory implementation of storage.SettlementStore.
type SettlementStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Settlement // keyed by id
}

// NewSettlementStore creates a new in-memory settlement store.
func NewSettlementStore() *SettlementStore {
	return &SettlementStore{data: make(map[string]*domain.Settlement)}
}

// Compile-time interface check.
var _ storage.SettlementStore = (*SettlementStore)(nil)

// Insert adds a new settlement. Returns ErrDuplicateKey if id exists.
func (s *SettlementStore) Insert(_ context.Context, st *domain.Settlement) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.ID]; exists {
		return storage.ErrDuplicateKey
	}
	stCopy := *st
	s.data[st.ID] = &stCopy
	return nil
}

// Update replaces an existing settlement. Returns ErrNotFound if not exists.
func (s *SettlementStore) Update(_ context.Context, st *domain.Settlement) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.ID]; !exists {
		return storage.ErrNotFound
	}
	stCopy := *st
	s.data[st.ID] = &stCopy
	return nil
}

// GetByID retrieves a settlement by id. Returns ErrNotFound if not exists.
func (s *SettlementStore) GetByID(_ context.Context, id string) (*domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	stCopy := *st
	return &stCopy, nil
}

// GetByLaunch retrieves settlements of a launch.
func (s *SettlementStore) GetByLaunch(_ context.Context, launchID uint64) ([]*domain.Settlement, error) {
	return s.filter(func(st *domain.Settlement) bool { return st.LaunchID == launchID }), nil
}

// GetByStatus retrieves settlements in status.
func (s *SettlementStore) GetByStatus(_ context.Context, status domain.SettlementStatus) ([]*domain.Settlement, error) {
	return s.filter(func(st *domain.Settlement) bool { return st.Status == status }), nil
}

func (s *SettlementStore) filter(keep func(*domain.Settlement) bool) []*domain.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Settlement
	for _, st := range s.data {
		if keep(st) {
			stCopy := *st
			result = append(result, &stCopy)
		}
	}

	// Sort by created_at ASC, then id ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}
