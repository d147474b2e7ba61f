// Package registry owns launch records and hands out exclusive
// per-launch access to them.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventSink receives the events produced by a committed mutation.
type EventSink interface {
	Append(ctx context.Context, events ...*domain.Event) error
}

// Registry serializes mutations per launch on top of a LaunchStore.
// Operations on different launches never contend.
type Registry struct {
	store storage.LaunchStore
	sink  EventSink // may be nil

	mu    deadlock.Mutex
	locks map[uint64]*deadlock.Mutex
}

// New creates a registry backed by store. Events returned by mutations
// are appended to sink after the launch is saved, still under its lock.
func New(store storage.LaunchStore, sink EventSink) *Registry {
	return &Registry{
		store: store,
		sink:  sink,
		locks: make(map[uint64]*deadlock.Mutex),
	}
}

func (r *Registry) lockFor(id uint64) *deadlock.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[id]
	if !ok {
		m = &deadlock.Mutex{}
		r.locks[id] = m
	}
	return m
}

// Mutation changes a launch and returns the events describing the change.
type Mutation func(l *domain.Launch) ([]*domain.Event, error)

// Create allocates an id, lets build populate the launch and stores it.
// build should validate before Create is called: a failing build burns the id.
func (r *Registry) Create(ctx context.Context, build func(id uint64) (*domain.Launch, []*domain.Event, error)) (*domain.Launch, error) {
	id, err := r.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate launch id: %w", err)
	}

	m := r.lockFor(id)
	m.Lock()
	defer m.Unlock()

	l, evs, err := build(id)
	if err != nil {
		return nil, err
	}
	l.ID = id
	l.EnsureMaps()

	if err := r.store.Insert(ctx, l); err != nil {
		return nil, fmt.Errorf("insert launch %d: %w", id, err)
	}
	if err := r.emit(ctx, id, evs); err != nil {
		return l.Clone(), err
	}
	return l.Clone(), nil
}

// With runs fn with exclusive access to launch id. The launch is saved
// and its events appended only when fn returns nil; the saved state is
// returned.
func (r *Registry) With(ctx context.Context, id uint64, fn Mutation) (*domain.Launch, error) {
	m := r.lockFor(id)
	m.Lock()
	defer m.Unlock()

	l, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	evs, err := fn(l)
	if err != nil {
		return nil, err
	}
	if err := r.store.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update launch %d: %w", id, err)
	}
	if err := r.emit(ctx, id, evs); err != nil {
		return l.Clone(), err
	}
	return l.Clone(), nil
}

func (r *Registry) emit(ctx context.Context, id uint64, evs []*domain.Event) error {
	if r.sink == nil || len(evs) == 0 {
		return nil
	}
	for _, e := range evs {
		if e.LaunchID == 0 {
			e.LaunchID = id
		}
	}
	if err := r.sink.Append(ctx, evs...); err != nil {
		return fmt.Errorf("launch %d committed, events not recorded: %w", id, err)
	}
	return nil
}

// Get returns a snapshot of launch id.
func (r *Registry) Get(ctx context.Context, id uint64) (*domain.Launch, error) {
	l, err := r.store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("launch %d", id), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get launch %d: %w", id, err)
	}
	l.EnsureMaps()
	return l, nil
}

// List returns every launch, ordered by id.
func (r *Registry) List(ctx context.Context) ([]*domain.Launch, error) {
	return r.store.List(ctx)
}

// ByStatus returns launches in status, ordered by id.
func (r *Registry) ByStatus(ctx context.Context, status domain.LaunchStatus) ([]*domain.Launch, error) {
	return r.store.GetByStatus(ctx, status)
}

// ByCreator returns launches created by creator, ordered by id.
func (r *Registry) ByCreator(ctx context.Context, creator domain.Identity) ([]*domain.Launch, error) {
	return r.store.GetByCreator(ctx, creator)
}

// ByToken returns launches selling token, ordered by id.
func (r *Registry) ByToken(ctx context.Context, token domain.Identity) ([]*domain.Launch, error) {
	return r.store.GetByToken(ctx, token)
}

// Count returns the number of launches created so far.
func (r *Registry) Count(ctx context.Context) (uint64, error) {
	return r.store.Count(ctx)
}
