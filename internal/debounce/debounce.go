// Package debounce turns a high-frequency signal into a low-frequency one.
//
// A Gate delivers the last committed value once the signal has been quiet
// for the configured interval. Each Commit supersedes the pending delivery.
package debounce

import (
	"sync"
	"time"
)

// DefaultInterval is the quiet period used for search input.
const DefaultInterval = 500 * time.Millisecond

// Gate delays delivery of a value until no newer value arrives for an interval.
// Goroutine-safe. The deliver callback runs on a timer goroutine, never under
// the gate's lock.
type Gate[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	deliver  func(T)
	timer    *time.Timer
	gen      uint64 // bumped by Commit and Stop; a fired timer delivers only if gen still matches
	stopped  bool
}

// New creates a Gate. A non-positive interval falls back to DefaultInterval.
func New[T any](interval time.Duration, deliver func(T)) *Gate[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate[T]{
		interval: interval,
		deliver:  deliver,
	}
}

// Commit schedules delivery of v after the quiet interval, cancelling any
// pending delivery. Commits after Stop are ignored.
func (g *Gate[T]) Commit(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = time.AfterFunc(g.interval, func() { g.fire(gen, v) })
}

// Cancel drops the pending delivery, if any, without stopping the gate.
func (g *Gate[T]) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked()
}

// Stop cancels the pending delivery and refuses further commits.
func (g *Gate[T]) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked()
	g.stopped = true
}

// Pending reports whether a delivery is scheduled.
func (g *Gate[T]) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

func (g *Gate[T]) cancelLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.gen++
}

// fire runs on the timer goroutine. A timer that expired while Commit or Stop
// held the lock finds a newer generation and does nothing.
func (g *Gate[T]) fire(gen uint64, v T) {
	g.mu.Lock()
	if gen != g.gen || g.stopped {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	deliver := g.deliver
	g.mu.Unlock()

	if deliver != nil {
		deliver(v)
	}
}
