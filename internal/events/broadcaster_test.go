package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"token-launchpad/internal/domain"
)

func TestBroadcaster_Filter(t *testing.T) {
	b := NewBroadcaster()
	only7 := b.Subscribe(4, func(e *domain.Event) bool { return e.LaunchID == 7 })
	all := b.Subscribe(4, nil)
	defer only7.Close()
	defer all.Close()

	b.Publish(&domain.Event{Seq: 1, LaunchID: 7})
	b.Publish(&domain.Event{Seq: 2, LaunchID: 8})

	assert.Len(t, only7.C, 1)
	assert.Len(t, all.C, 2)
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(1, nil)
	defer sub.Close()

	assert.Equal(t, 0, b.Publish(&domain.Event{Seq: 1}))
	assert.Equal(t, 1, b.Publish(&domain.Event{Seq: 2}), "second event is dropped, not blocking")

	e := <-sub.C
	assert.Equal(t, uint64(1), e.Seq)
}

func TestSubscription_CloseIdempotent(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(1, nil)
	assert.Equal(t, 1, b.Len())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Len())

	_, ok := <-sub.C
	assert.False(t, ok)
	b.Publish(&domain.Event{Seq: 1})
}
