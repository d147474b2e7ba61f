package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// LaunchStore is an in-memory implementation of storage.LaunchStore.
type LaunchStore struct {
	mu     sync.RWMutex
	data   map[uint64]*domain.Launch // keyed by id
	nextID uint64
}

// NewLaunchStore creates a new in-memory launch store.
func NewLaunchStore() *LaunchStore {
	return &LaunchStore{
		data:   make(map[uint64]*domain.Launch),
		nextID: 1,
	}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

// NextID allocates the next launch id.
func (s *LaunchStore) NextID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	return id, nil
}

// Insert adds a new launch. Returns ErrDuplicateKey if id exists.
func (s *LaunchStore) Insert(_ context.Context, l *domain.Launch) error {
	if l == nil || l.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[l.ID] = l.Clone()
	if l.ID >= s.nextID {
		s.nextID = l.ID + 1
	}
	return nil
}

// Update replaces an existing launch. Returns ErrNotFound if not exists.
func (s *LaunchStore) Update(_ context.Context, l *domain.Launch) error {
	if l == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ID]; !exists {
		return storage.ErrNotFound
	}
	s.data[l.ID] = l.Clone()
	return nil
}

// GetByID retrieves a launch by id. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(_ context.Context, id uint64) (*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return l.Clone(), nil
}

// List retrieves all launches, ordered by id ASC.
func (s *LaunchStore) List(_ context.Context) ([]*domain.Launch, error) {
	return s.filter(func(*domain.Launch) bool { return true }), nil
}

// GetByCreator retrieves launches created by creator, ordered by id ASC.
func (s *LaunchStore) GetByCreator(_ context.Context, creator domain.Identity) ([]*domain.Launch, error) {
	return s.filter(func(l *domain.Launch) bool { return l.Creator == creator }), nil
}

// GetByStatus retrieves launches in status, ordered by id ASC.
func (s *LaunchStore) GetByStatus(_ context.Context, status domain.LaunchStatus) ([]*domain.Launch, error) {
	return s.filter(func(l *domain.Launch) bool { return l.Status == status }), nil
}

// GetByToken retrieves launches selling token, ordered by id ASC.
func (s *LaunchStore) GetByToken(_ context.Context, token domain.Identity) ([]*domain.Launch, error) {
	return s.filter(func(l *domain.Launch) bool { return l.Token == token }), nil
}

// Count returns the number of launches.
func (s *LaunchStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.data)), nil
}

func (s *LaunchStore) filter(keep func(*domain.Launch) bool) []*domain.Launch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Launch
	for _, l := range s.data {
		if keep(l) {
			result = append(result, l.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
