package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage/memory"
)

type failingArchive struct {
	*memory.EventArchive
	fail bool
}

func (a *failingArchive) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if a.fail {
		return errors.New("archive down")
	}
	return a.EventArchive.InsertBulk(ctx, events)
}

func TestLog_AppendAssignsSeq(t *testing.T) {
	log := NewLog(memory.NewEventStore(), nil)
	ctx := context.Background()

	a := &domain.Event{Type: domain.EventLaunchCreated, LaunchID: 1}
	b := &domain.Event{Type: domain.EventLaunchStarted, LaunchID: 1}
	require.NoError(t, log.Append(ctx, a, b))
	assert.Less(t, a.Seq, b.Seq)

	got, err := log.ForLaunch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventLaunchStarted, got[1].Type)

	since, err := log.Since(ctx, a.Seq, 10)
	require.NoError(t, err)
	assert.Len(t, since, 1)

	started, err := log.OfType(ctx, domain.EventLaunchStarted)
	require.NoError(t, err)
	assert.Len(t, started, 1)
}

func TestLog_ArchiveBatches(t *testing.T) {
	archive := memory.NewEventArchive()
	log := NewLog(memory.NewEventStore(), nil, WithArchive(archive), WithArchiveBatch(3))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, log.Append(ctx, &domain.Event{Type: domain.EventContributed, LaunchID: 7}))
	}
	archived, err := archive.GetByLaunch(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, archived, "below batch size nothing is written")

	require.NoError(t, log.Append(ctx, &domain.Event{Type: domain.EventContributed, LaunchID: 7}))
	archived, err = archive.GetByLaunch(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, archived, 3)

	require.NoError(t, log.Append(ctx, &domain.Event{Type: domain.EventSaleEnded, LaunchID: 7}))
	assert.Equal(t, 1, log.Flush(ctx))

	counts, err := archive.CountByType(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), counts[domain.EventContributed])
	assert.Equal(t, uint64(1), counts[domain.EventSaleEnded])
}

func TestLog_ArchiveFailureDoesNotFailAppend(t *testing.T) {
	archive := &failingArchive{EventArchive: memory.NewEventArchive(), fail: true}
	store := memory.NewEventStore()
	log := NewLog(store, nil, WithArchive(archive), WithArchiveBatch(1))
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, &domain.Event{Type: domain.EventPaused}))

	all, err := store.GetRange(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLog_RunFlushesOnCancel(t *testing.T) {
	archive := memory.NewEventArchive()
	log := NewLog(memory.NewEventStore(), nil, WithArchive(archive))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, log.Append(ctx, &domain.Event{Type: domain.EventLaunchCreated, LaunchID: 2}))
	cancel()
	require.NoError(t, log.Run(ctx, time.Hour))

	archived, err := archive.GetByLaunch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestLog_Publishes(t *testing.T) {
	b := NewBroadcaster()
	log := NewLog(memory.NewEventStore(), nil, WithBroadcaster(b))
	sub := b.Subscribe(4, nil)
	defer sub.Close()

	require.NoError(t, log.Append(context.Background(), &domain.Event{Type: domain.EventResumed}))
	e := <-sub.C
	assert.Equal(t, domain.EventResumed, e.Type)
	assert.NotZero(t, e.Seq)
}
