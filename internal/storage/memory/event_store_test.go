package memory

import (
	"context"
	"errors"
	"testing"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

func TestEventStore_AppendAssignsSeq(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := &domain.Event{Type: domain.EventContributed, LaunchID: uint64(i%2 + 1)}
		seq, err := store.Append(ctx, e)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if seq != uint64(i+1) || e.Seq != seq {
			t.Errorf("seq = %d (event %d), want %d", seq, e.Seq, i+1)
		}
	}

	if _, err := store.Append(ctx, &domain.Event{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for untyped event, got %v", err)
	}

	byLaunch, _ := store.GetByLaunch(ctx, 1)
	if len(byLaunch) != 3 {
		t.Errorf("expected 3 events for launch 1, got %d", len(byLaunch))
	}

	page, _ := store.GetRange(ctx, 2, 2)
	if len(page) != 2 || page[0].Seq != 3 || page[1].Seq != 4 {
		t.Errorf("unexpected page: %+v", page)
	}

	tail, _ := store.GetRange(ctx, 5, 10)
	if len(tail) != 0 {
		t.Errorf("expected empty tail, got %d", len(tail))
	}
}

func TestEventArchive_InsertBulk(t *testing.T) {
	archive := NewEventArchive()
	ctx := context.Background()

	batch := []*domain.Event{
		{Seq: 1, Type: domain.EventLaunchCreated, LaunchID: 7},
		{Seq: 2, Type: domain.EventContributed, LaunchID: 7},
		{Seq: 3, Type: domain.EventContributed, LaunchID: 7},
	}
	if err := archive.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	if err := archive.InsertBulk(ctx, batch[:1]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	counts, _ := archive.CountByType(ctx, 7)
	if counts[domain.EventContributed] != 2 || counts[domain.EventLaunchCreated] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	events, _ := archive.GetByLaunch(ctx, 7)
	if len(events) != 3 || events[0].Seq != 1 {
		t.Errorf("unexpected archived events: %+v", events)
	}
}
