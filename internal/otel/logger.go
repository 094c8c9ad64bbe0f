package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueSize bounds the events waiting for the writer goroutine.
const queueSize = 4096

// TraceEnv turns on per-message trace events when set to a true value.
const TraceEnv = "POPCORN_TRACE"

// Logger appends events to w as JSONL from a single writer goroutine and
// mirrors them into an optional RingBuffer. Emit never blocks: when the queue
// is full or the logger is closed the event is counted as dropped.
//
// A nil *Logger discards everything, so controllers take one as an optional
// dependency.
type Logger struct {
	session string
	queue   chan Event
	enc     *json.Encoder
	ring    atomic.Pointer[RingBuffer]
	tracing atomic.Bool

	dropped  atomic.Uint64
	closing  atomic.Bool
	stopOnce sync.Once
	drained  chan struct{}
}

// NewLogger starts a logger writing to w. Close flushes it.
func NewLogger(w io.Writer) *Logger {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	l := &Logger{
		session: strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		queue:   make(chan Event, queueSize),
		enc:     enc,
		drained: make(chan struct{}),
	}
	l.tracing.Store(traceFromEnv())
	go l.writeLoop()
	return l
}

// NewNullLogger returns a logger that only feeds its ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func traceFromEnv() bool {
	v := os.Getenv(TraceEnv)
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

func (l *Logger) writeLoop() {
	defer close(l.drained)
	for ev := range l.queue {
		if err := l.enc.Encode(ev); err != nil {
			l.dropped.Add(1)
			continue
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(ev)
		}
	}
}

// SessionID is the random id stamped on every event from this logger.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Emit stamps e with the session id (and the current time if unset) and
// queues it.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closing.Load() {
		l.dropped.Add(1)
		return
	}
	// A send can still race Close closing the queue.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) Debug(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelDebug, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error records err at error level. A nil err leaves Err empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// Tracing reports whether trace events are wanted. Callers check it before
// building a trace event so the hot path stays cheap.
func (l *Logger) Tracing() bool {
	return l != nil && l.tracing.Load()
}

// SetTracing overrides the POPCORN_TRACE setting.
func (l *Logger) SetTracing(on bool) {
	if l != nil {
		l.tracing.Store(on)
	}
}

// Trace emits e at debug level when tracing is on.
func (l *Logger) Trace(e Event) {
	if !l.Tracing() {
		return
	}
	e.Level = LevelDebug
	l.Emit(e)
}

// SetRingBuffer mirrors subsequent events into buf. Nil detaches.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	if l != nil {
		l.ring.Store(buf)
	}
}

// Dropped counts events lost to a full queue, a closed logger, or a failed write.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close drains queued events and stops the writer. Safe to call twice.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() {
		l.closing.Store(true)
		close(l.queue)
		<-l.drained

		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "popcorn: %d events dropped during session %s\n", n, l.session)
		}
	})
}
