// Package clock supplies the logical block height used by every time check.
package clock

import (
	"sync/atomic"
	"time"
)

// Source returns the current block height.
type Source interface {
	Now() uint64
}

// Manual is a Source advanced explicitly. Safe for concurrent use.
type Manual struct {
	height atomic.Uint64
}

// NewManual starts a manual clock at height.
func NewManual(height uint64) *Manual {
	m := &Manual{}
	m.height.Store(height)
	return m
}

// Now returns the current height.
func (m *Manual) Now() uint64 { return m.height.Load() }

// Set jumps to height.
func (m *Manual) Set(height uint64) { m.height.Store(height) }

// Advance moves forward by n blocks and returns the new height.
func (m *Manual) Advance(n uint64) uint64 { return m.height.Add(n) }

// Interval derives the height from wall time: one block per interval since genesis.
type Interval struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewInterval creates an Interval clock. interval must be positive.
func NewInterval(genesis time.Time, interval time.Duration) *Interval {
	if interval <= 0 {
		interval = time.Second
	}
	return &Interval{genesis: genesis, interval: interval, now: time.Now}
}

// Now returns whole intervals elapsed since genesis, or 0 before it.
func (c *Interval) Now() uint64 {
	d := c.now().Sub(c.genesis)
	if d <= 0 {
		return 0
	}
	return uint64(d / c.interval)
}
