package storage

import (
	"context"

	"token-launchpad/internal/domain"
)

// LaunchStore provides access to launches storage.
// Launches are updated in place but never deleted.
type LaunchStore interface {
	// NextID allocates the next launch id. Ids start at 1 and never repeat.
	NextID(ctx context.Context) (uint64, error)

	// Insert adds a new launch. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, l *domain.Launch) error

	// Update replaces an existing launch. Returns ErrNotFound if not exists.
	Update(ctx context.Context, l *domain.Launch) error

	// GetByID retrieves a launch by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id uint64) (*domain.Launch, error)

	// List retrieves all launches, ordered by id ASC.
	List(ctx context.Context) ([]*domain.Launch, error)

	// GetByCreator retrieves launches created by creator, ordered by id ASC.
	GetByCreator(ctx context.Context, creator domain.Identity) ([]*domain.Launch, error)

	// GetByStatus retrieves launches in status, ordered by id ASC.
	GetByStatus(ctx context.Context, status domain.LaunchStatus) ([]*domain.Launch, error)

	// GetByToken retrieves launches selling token, ordered by id ASC.
	GetByToken(ctx context.Context, token domain.Identity) ([]*domain.Launch, error)

	// Count returns the number of launches.
	Count(ctx context.Context) (uint64, error)
}

// PlatformStore provides access to the single platform record.
type PlatformStore interface {
	// Get retrieves the platform record. Returns ErrNotFound before the first Put.
	Get(ctx context.Context) (*domain.Platform, error)

	// Put creates or replaces the platform record.
	Put(ctx context.Context, p *domain.Platform) error
}

// EventStore provides access to the append-only events log.
type EventStore interface {
	// Append stores e, assigns e.Seq and returns it. Seq is strictly increasing.
	Append(ctx context.Context, e *domain.Event) (uint64, error)

	// GetByLaunch retrieves all events of a launch, ordered by seq ASC.
	GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Event, error)

	// GetRange retrieves up to limit events with seq > afterSeq, ordered by seq ASC.
	GetRange(ctx context.Context, afterSeq uint64, limit int) ([]*domain.Event, error)

	// GetByType retrieves all events of a type, ordered by seq ASC.
	GetByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error)
}

// EventArchive is the analytics copy of the events log.
type EventArchive interface {
	// InsertBulk adds events. Fails entire batch on duplicate seq.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByLaunch retrieves archived events of a launch, ordered by seq ASC.
	GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Event, error)

	// CountByType returns event counts per type for a launch.
	CountByType(ctx context.Context, launchID uint64) (map[domain.EventType]uint64, error)
}

// SettlementStore provides access to settlements storage.
type SettlementStore interface {
	// Insert adds a new settlement. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, s *domain.Settlement) error

	// Update replaces an existing settlement. Returns ErrNotFound if not exists.
	Update(ctx context.Context, s *domain.Settlement) error

	// GetByID retrieves a settlement by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Settlement, error)

	// GetByLaunch retrieves settlements of a launch, ordered by created_at ASC, id ASC.
	GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Settlement, error)

	// GetByStatus retrieves settlements in status, ordered by created_at ASC, id ASC.
	GetByStatus(ctx context.Context, status domain.SettlementStatus) ([]*domain.Settlement, error)
}
