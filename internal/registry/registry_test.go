package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage/memory"
)

func build(creator domain.Identity) func(uint64) (*domain.Launch, []*domain.Event, error) {
	return func(uint64) (*domain.Launch, []*domain.Event, error) {
		l := &domain.Launch{Creator: creator, Title: "t", Status: domain.StatusPending}
		return l, []*domain.Event{{Type: domain.EventLaunchCreated, Actor: creator}}, nil
	}
}

type recordingSink struct {
	events []*domain.Event
}

func (s *recordingSink) Append(_ context.Context, events ...*domain.Event) error {
	s.events = append(s.events, events...)
	return nil
}

func TestCreate_AssignsIDs(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	ctx := context.Background()

	a, err := r.Create(ctx, build(domain.Identity{1}))
	require.NoError(t, err)
	b, err := r.Create(ctx, build(domain.Identity{2}))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.ID)
	assert.Equal(t, uint64(2), b.ID)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestCreate_BuildError(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	ctx := context.Background()

	_, err := r.Create(ctx, func(uint64) (*domain.Launch, []*domain.Event, error) {
		return nil, nil, apperrors.New(apperrors.CodeInvalidInput, "bad")
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWith_SavesOnlyOnSuccess(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	ctx := context.Background()

	l, err := r.Create(ctx, build(domain.Identity{1}))
	require.NoError(t, err)

	_, err = r.With(ctx, l.ID, func(l *domain.Launch) ([]*domain.Event, error) {
		l.Title = "changed"
		return nil, errors.New("abort")
	})
	require.Error(t, err)

	got, err := r.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	saved, err := r.With(ctx, l.ID, func(l *domain.Launch) ([]*domain.Event, error) {
		l.Title = "changed"
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "changed", saved.Title)
}

func TestWith_NotFound(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	_, err := r.With(context.Background(), 42, func(*domain.Launch) ([]*domain.Event, error) { return nil, nil })
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestWith_Serializes(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	ctx := context.Background()

	l, err := r.Create(ctx, build(domain.Identity{1}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.With(ctx, l.ID, func(l *domain.Launch) ([]*domain.Event, error) {
				l.TotalRaised = l.TotalRaised.Add(domain.NewAmount(1))
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewAmount(50), got.TotalRaised)
}

func TestQueries(t *testing.T) {
	r := New(memory.NewLaunchStore(), nil)
	ctx := context.Background()
	alice := domain.Identity{1}

	_, err := r.Create(ctx, build(alice))
	require.NoError(t, err)
	_, err = r.Create(ctx, build(domain.Identity{2}))
	require.NoError(t, err)

	mine, err := r.ByCreator(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	pending, err := r.ByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEvents_AppendedOnCommitOnly(t *testing.T) {
	sink := &recordingSink{}
	r := New(memory.NewLaunchStore(), sink)
	ctx := context.Background()

	l, err := r.Create(ctx, build(domain.Identity{1}))
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, l.ID, sink.events[0].LaunchID, "launch id is filled in")

	_, err = r.With(ctx, l.ID, func(*domain.Launch) ([]*domain.Event, error) {
		return []*domain.Event{{Type: domain.EventLaunchStarted}}, errors.New("abort")
	})
	require.Error(t, err)
	assert.Len(t, sink.events, 1)

	_, err = r.With(ctx, l.ID, func(*domain.Launch) ([]*domain.Event, error) {
		return []*domain.Event{{Type: domain.EventLaunchStarted}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, sink.events, 2)
}
