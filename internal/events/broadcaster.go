package events

import (
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
)

// Subscription receives published events until Close is called.
type Subscription struct {
	C <-chan *domain.Event

	ch     chan *domain.Event
	filter func(*domain.Event) bool
	b      *Broadcaster
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.remove(s)
	})
}

// Broadcaster fans events out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with the given buffer size.
// A nil filter accepts every event.
func (b *Broadcaster) Subscribe(buffer int, filter func(*domain.Event) bool) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *domain.Event, buffer)
	s := &Subscription{C: ch, ch: ch, filter: filter, b: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	observability.DefaultMetrics.Subscribers.Set(float64(n))
	return s
}

// Publish delivers e to every matching subscriber and returns how many
// subscribers dropped it.
func (b *Broadcaster) Publish(e *domain.Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for s := range b.subs {
		if s.filter != nil && !s.filter(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			dropped++
			observability.RecordEventDropped()
		}
	}
	return dropped
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	n := len(b.subs)
	close(s.ch)
	b.mu.Unlock()

	observability.DefaultMetrics.Subscribers.Set(float64(n))
}
