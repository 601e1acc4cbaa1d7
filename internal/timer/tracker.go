// Package timer drives the live elapsed-time display for a running
// time-tracking session.
package timer

import (
	"errors"
	"sync"
	"time"

	"clearbooks/internal/core"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("timer already running")

// Clock abstracts wall-clock access so the tick loop is testable. The
// stop function returned by Ticker releases the ticker's resources.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Tracker is the Idle/Running state machine behind the timer page. While
// Running it recomputes elapsed whole seconds once per interval and
// hands the value to a display callback. The recomputation is
// display-only: it never mutates persisted state.
type Tracker struct {
	clock    Clock
	interval time.Duration

	mu       sync.Mutex
	running  bool
	start    time.Time
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// New returns a tracker ticking once per second on the system clock.
func New() *Tracker {
	return NewWithClock(systemClock{}, time.Second)
}

// NewWithClock builds a tracker with an explicit clock and tick period.
func NewWithClock(clock Clock, interval time.Duration) *Tracker {
	return &Tracker{clock: clock, interval: interval}
}

// Start transitions Idle -> Running and begins invoking onTick with the
// recomputed elapsed seconds. Only one session may run at a time;
// starting while Running fails with ErrAlreadyRunning.
func (t *Tracker) Start(start time.Time, onTick func(elapsedSeconds int64)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	t.running = true
	t.start = start
	t.stop = make(chan struct{})
	t.stopOnce = &sync.Once{}
	t.done = make(chan struct{})

	go t.run(start, t.stop, t.done, onTick)
	return nil
}

func (t *Tracker) run(start time.Time, stop <-chan struct{}, done chan<- struct{}, onTick func(int64)) {
	defer close(done)

	ticks, cancel := t.clock.Ticker(t.interval)
	defer cancel()

	for {
		select {
		case <-stop:
			return
		case <-ticks:
			onTick(core.ElapsedSeconds(t.clock.Now(), start))
		}
	}
}

// Stop transitions Running -> Idle and cancels the tick loop exactly
// once, no matter how many times or from how many paths it is called.
// It returns the final elapsed seconds and waits for the loop to exit,
// so no further onTick invocation can happen after Stop returns.
func (t *Tracker) Stop() int64 {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return 0
	}
	t.running = false
	stop, once, done, start := t.stop, t.stopOnce, t.done, t.start
	t.mu.Unlock()

	once.Do(func() { close(stop) })
	<-done

	return core.ElapsedSeconds(t.clock.Now(), start)
}

// Running reports whether a session is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the current elapsed seconds for the running session,
// or 0 when idle.
func (t *Tracker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	return core.ElapsedSeconds(t.clock.Now(), t.start)
}
