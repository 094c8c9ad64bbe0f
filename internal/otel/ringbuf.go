package otel

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 512

// RingBuffer keeps the most recent events in memory for the debug overlay.
// Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	head  int // next write position
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size), size: size}
}

// Push adds an event, overwriting the oldest if full. The Extra map is
// copied so later mutation by the caller does not leak in.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// at returns the i-th oldest event. Caller holds mu.
func (r *RingBuffer) at(i int) Event {
	oldest := (r.head - r.count + r.size) % r.size
	return r.buf[(oldest+i)%r.size]
}

// collect copies the events matching keep, oldest first.
func (r *RingBuffer) collect(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for i := 0; i < r.count; i++ {
		e := r.at(i)
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns all buffered events, oldest first. Nil when empty.
func (r *RingBuffer) Snapshot() []Event {
	return r.collect(nil)
}

// Last returns the n most recent events, oldest first. Nil for n <= 0.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n == 0 {
		return nil
	}
	out := make([]Event, n)
	skip := r.count - n
	for i := range out {
		out[i] = r.at(skip + i)
	}
	return out
}

// Subsystem returns buffered events whose kind starts with "<prefix>.",
// e.g. Subsystem("detail") yields detail.start, detail.cancel, ...
func (r *RingBuffer) Subsystem(prefix string) []Event {
	p := prefix + "."
	return r.collect(func(e Event) bool {
		return strings.HasPrefix(string(e.Kind), p)
	})
}

// Lifeline returns every buffered event stamped with qid, oldest first.
func (r *RingBuffer) Lifeline(qid string) []Event {
	if qid == "" {
		return nil
	}
	return r.collect(func(e Event) bool { return e.QueryID == qid })
}

// Len returns the number of events currently in the buffer.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for i := 0; i < r.count; i++ {
		counts[r.at(i).Kind]++
	}
	return counts
}
