package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventArchive is an in-memory implementation of storage.EventArchive.
type EventArchive struct {
	mu   sync.RWMutex
	data map[uint64]*domain.Event // keyed by seq
}

// NewEventArchive creates a new in-memory event archive.
func NewEventArchive() *EventArchive {
	return &EventArchive{data: make(map[uint64]*domain.Event)}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBulk adds events. Fails entire batch on duplicate seq.
func (s *EventArchive) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uint64]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Seq == 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[e.Seq]; dup {
			return storage.ErrDuplicateKey
		}
		seen[e.Seq] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[e.Seq] = &eventCopy
	}
	return nil
}

// GetByLaunch retrieves archived events of a launch, ordered by seq ASC.
func (s *EventArchive) GetByLaunch(_ context.Context, launchID uint64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.LaunchID == launchID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// CountByType returns event counts per type for a launch.
func (s *EventArchive) CountByType(_ context.Context, launchID uint64) (map[domain.EventType]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EventType]uint64)
	for _, e := range s.data {
		if e.LaunchID == launchID {
			counts[e.Type]++
		}
	}
	return counts, nil
}
