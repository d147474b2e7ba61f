package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	c := NewManual(10)
	if got := c.Now(); got != 10 {
		t.Fatalf("Now() = %d, want 10", got)
	}
	if got := c.Advance(5); got != 15 {
		t.Errorf("Advance(5) = %d, want 15", got)
	}
	c.Set(3)
	if got := c.Now(); got != 3 {
		t.Errorf("after Set(3), Now() = %d", got)
	}
}

func TestInterval(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInterval(genesis, 2*time.Second)

	c.now = func() time.Time { return genesis.Add(-time.Minute) }
	if got := c.Now(); got != 0 {
		t.Errorf("before genesis: got %d, want 0", got)
	}

	c.now = func() time.Time { return genesis.Add(11 * time.Second) }
	if got := c.Now(); got != 5 {
		t.Errorf("11s at 2s/block: got %d, want 5", got)
	}
}
