package memory

import (
	"context"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// PlatformStore is an in-memory implementation of storage.PlatformStore.
type PlatformStore struct {
	mu   sync.RWMutex
	data *domain.Platform
}

// NewPlatformStore creates an empty platform store.
func NewPlatformStore() *PlatformStore {
	return &PlatformStore{}
}

// Compile-time interface check.
var _ storage.PlatformStore = (*PlatformStore)(nil)

// Get retrieves the platform record. Returns ErrNotFound before the first Put.
func (s *PlatformStore) Get(_ context.Context) (*domain.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	return s.data.Clone(), nil
}

// Put creates or replaces the platform record.
func (s *PlatformStore) Put(_ context.Context, p *domain.Platform) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = p.Clone()
	return nil
}
