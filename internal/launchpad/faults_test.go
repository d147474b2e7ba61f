package launchpad

import (
	"context"
	"errors"
	"sync/atomic"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage/memory"
)

var errStoreDown = errors.New("store unavailable")

// faultyLaunches fails the next n Update calls once armed.
type faultyLaunches struct {
	*memory.LaunchStore
	failUpdates atomic.Int32
}

func (s *faultyLaunches) FailUpdates(n int32) { s.failUpdates.Store(n) }

func (s *faultyLaunches) Update(ctx context.Context, l *domain.Launch) error {
	if take(&s.failUpdates) {
		return errStoreDown
	}
	return s.LaunchStore.Update(ctx, l)
}

// faultyPlatform fails the next n Put calls once armed. onPut, when set,
// runs before every Put.
type faultyPlatform struct {
	*memory.PlatformStore
	failPuts atomic.Int32
	onPut    func()
}

func (s *faultyPlatform) FailPuts(n int32) { s.failPuts.Store(n) }

func (s *faultyPlatform) Put(ctx context.Context, p *domain.Platform) error {
	if s.onPut != nil {
		s.onPut()
	}
	if take(&s.failPuts) {
		return errStoreDown
	}
	return s.PlatformStore.Put(ctx, p)
}

func take(n *atomic.Int32) bool {
	for {
		cur := n.Load()
		if cur <= 0 {
			return false
		}
		if n.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}
