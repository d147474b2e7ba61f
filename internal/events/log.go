// Package events records the append-only launchpad event log and
// distributes new events to the analytics archive and live subscribers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// DefaultArchiveBatch is the number of events buffered before an archive write.
const DefaultArchiveBatch = 100

// Log appends events to the primary store, then mirrors them to the
// archive in batches and publishes them to subscribers.
// The primary store is authoritative; archive failures are logged only.
type Log struct {
	store     storage.EventStore
	archive   storage.EventArchive // may be nil
	broadcast *Broadcaster
	logger    *zap.Logger

	batchSize int

	mu      sync.Mutex
	pending []*domain.Event
}

// Option configures a Log.
type Option func(*Log)

// WithArchive mirrors events to archive.
func WithArchive(archive storage.EventArchive) Option {
	return func(l *Log) {
		l.archive = archive
	}
}

// WithArchiveBatch sets the archive batch size.
func WithArchiveBatch(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithBroadcaster publishes appended events to b.
func WithBroadcaster(b *Broadcaster) Option {
	return func(l *Log) {
		l.broadcast = b
	}
}

// NewLog creates an event log over store.
func NewLog(store storage.EventStore, logger *zap.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Log{
		store:     store,
		logger:    logger.Named("events"),
		batchSize: DefaultArchiveBatch,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores events in order. Seq is assigned on each event.
func (l *Log) Append(ctx context.Context, events ...*domain.Event) error {
	for _, e := range events {
		if _, err := l.store.Append(ctx, e); err != nil {
			return fmt.Errorf("append %s event: %w", e.Type, err)
		}
		observability.RecordEventAppended(string(e.Type))
		l.logger.Debug("event",
			zap.Uint64("seq", e.Seq),
			zap.String("type", string(e.Type)),
			zap.Uint64("launch_id", e.LaunchID),
		)

		if l.broadcast != nil {
			l.broadcast.Publish(e)
		}
		l.enqueue(ctx, e)
	}
	return nil
}

func (l *Log) enqueue(ctx context.Context, e *domain.Event) {
	if l.archive == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, e)
	full := len(l.pending) >= l.batchSize
	l.mu.Unlock()

	if full {
		l.Flush(ctx)
	}
}

// Flush writes buffered events to the archive. Returns the number written.
func (l *Log) Flush(ctx context.Context) int {
	if l.archive == nil {
		return 0
	}

	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}
	if err := l.archive.InsertBulk(ctx, batch); err != nil {
		observability.DefaultMetrics.ArchiveErrors.Inc()
		l.logger.Warn("archive write failed",
			zap.Int("events", len(batch)),
			zap.Uint64("first_seq", batch[0].Seq),
			zap.Error(err),
		)
		return 0
	}
	return len(batch)
}

// Run flushes the archive every interval until ctx is done, then flushes
// once more.
func (l *Log) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush must outlive the cancelled context.
			l.Flush(context.Background())
			return nil
		case <-ticker.C:
			l.Flush(ctx)
		}
	}
}

// ForLaunch returns the events of launch id, ordered by seq.
func (l *Log) ForLaunch(ctx context.Context, launchID uint64) ([]*domain.Event, error) {
	return l.store.GetByLaunch(ctx, launchID)
}

// Since returns up to limit events after seq.
func (l *Log) Since(ctx context.Context, afterSeq uint64, limit int) ([]*domain.Event, error) {
	return l.store.GetRange(ctx, afterSeq, limit)
}

// OfType returns every event of type t.
func (l *Log) OfType(ctx context.Context, t domain.EventType) ([]*domain.Event, error) {
	return l.store.GetByType(ctx, t)
}

// Broadcaster returns the broadcaster, or nil if none is attached.
func (l *Log) Broadcaster() *Broadcaster {
	return l.broadcast
}
