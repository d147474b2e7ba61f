package memory

import (
	"context"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
// Events are kept in append order, which is also seq order.
type EventStore struct {
	mu     sync.RWMutex
	events []*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append stores e and assigns the next seq.
func (s *EventStore) Append(_ context.Context, e *domain.Event) (uint64, error) {
	if e == nil || e.Type == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	eventCopy.Seq = uint64(len(s.events)) + 1
	s.events = append(s.events, &eventCopy)
	e.Seq = eventCopy.Seq
	return eventCopy.Seq, nil
}

// GetByLaunch retrieves all events of a launch, ordered by seq ASC.
func (s *EventStore) GetByLaunch(_ context.Context, launchID uint64) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.LaunchID == launchID }), nil
}

// GetByType retrieves all events of a type, ordered by seq ASC.
func (s *EventStore) GetByType(_ context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Type == eventType }), nil
}

// GetRange retrieves up to limit events with seq > afterSeq.
func (s *EventStore) GetRange(_ context.Context, afterSeq uint64, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if afterSeq >= uint64(len(s.events)) {
		return nil, nil
	}
	end := afterSeq + uint64(limit)
	if end > uint64(len(s.events)) {
		end = uint64(len(s.events))
	}

	result := make([]*domain.Event, 0, end-afterSeq)
	for _, e := range s.events[afterSeq:end] {
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	return result, nil
}

func (s *EventStore) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	return result
}
