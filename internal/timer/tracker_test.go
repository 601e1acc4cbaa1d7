package timer

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock hands out a manual tick channel and advances one second on
// every Now call, so consecutive ticks observe 1, 2, 3, ... elapsed.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
	ticks   chan time.Time
	stopped int
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{current: start, ticks: make(chan time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func (c *fakeClock) Ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.stopped++
	}
}

func (c *fakeClock) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func TestTrackerTicksInOrder(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tracker := NewWithClock(clock, time.Second)

	elapsed := make(chan int64, 16)
	if err := tracker.Start(start, func(s int64) { elapsed <- s }); err != nil {
		t.Fatalf("start: %v", err)
	}

	var got []int64
	for i := 0; i < 5; i++ {
		clock.ticks <- time.Time{}
		select {
		case v := <-elapsed:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatalf("tick %d never produced a value", i+1)
		}
	}

	tracker.Stop()

	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("tick values = %v, want 1..5 in order", got)
		}
	}

	// Stop waited for the loop to exit, so no sixth update can arrive.
	select {
	case v := <-elapsed:
		t.Fatalf("unexpected tick after stop: %d", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTrackerSingleRunning(t *testing.T) {
	clock := newFakeClock(time.Now())
	tracker := NewWithClock(clock, time.Second)

	if err := tracker.Start(time.Now(), func(int64) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Start(time.Now(), func(int64) {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	tracker.Stop()
}

func TestTrackerStopExactlyOnce(t *testing.T) {
	clock := newFakeClock(time.Now())
	tracker := NewWithClock(clock, time.Second)

	if err := tracker.Start(time.Now(), func(int64) {}); err != nil {
		t.Fatalf("start: %v", err)
	}

	tracker.Stop()
	tracker.Stop() // second stop is a no-op, not a double cancel

	if n := clock.stopCount(); n != 1 {
		t.Fatalf("ticker cancelled %d times, want exactly 1", n)
	}
	if tracker.Running() {
		t.Fatalf("tracker still running after stop")
	}
}

func TestTrackerRestartAfterStop(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tracker := NewWithClock(clock, time.Second)

	if err := tracker.Start(start, func(int64) {}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	tracker.Stop()

	// A stopped tracker accepts a new session without leaking the
	// previous interval.
	elapsed := make(chan int64, 1)
	if err := tracker.Start(clock.Now(), func(s int64) { elapsed <- s }); err != nil {
		t.Fatalf("restart: %v", err)
	}
	clock.ticks <- time.Time{}
	select {
	case v := <-elapsed:
		if v != 1 {
			t.Fatalf("first tick after restart = %d, want 1", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tick after restart")
	}
	tracker.Stop()

	if n := clock.stopCount(); n != 2 {
		t.Fatalf("ticker cancelled %d times across two sessions, want 2", n)
	}
}

func TestTrackerElapsedIdle(t *testing.T) {
	tracker := New()
	if got := tracker.Elapsed(); got != 0 {
		t.Fatalf("idle elapsed = %d, want 0", got)
	}
	if got := tracker.Stop(); got != 0 {
		t.Fatalf("stop while idle = %d, want 0", got)
	}
}
