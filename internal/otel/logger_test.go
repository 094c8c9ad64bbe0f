package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSearchStart, Level: LevelInfo, Comp: "search", Query: "batman", QueryID: "q-1"})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["kind"] != "search.start" {
		t.Errorf("kind=%v, want search.start", got["kind"])
	}
	if got["comp"] != "search" || got["query"] != "batman" || got["qid"] != "q-1" {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if len(ev.SessionID) != 16 || ev.SessionID != l.SessionID() {
		t.Errorf("session_id %q, logger %q", ev.SessionID, l.SessionID())
	}
}

func TestDurationSerializedAsMillis(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindDetailComplete, ItemID: "tt0468569", Dur: 250 * time.Millisecond})
	l.Close()

	got := decodeLines(t, &buf)[0]
	if got["dur_ms"] != float64(250) {
		t.Errorf("dur_ms=%v, want 250", got["dur_ms"])
	}
	if got["item_id"] != "tt0468569" {
		t.Errorf("item_id=%v", got["item_id"])
	}
}

func TestEmptyFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "query", "item_id", "err", "msg", "extra", "qid"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("field %q should be omitted: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindSearchCancel, Comp: "search"})
		}()
	}
	wg.Wait()
	l.Close()

	if n := len(decodeLines(t, &buf)); n != 100 {
		t.Errorf("expected 100 lines, got %d", n)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "hi")
	l.Error(KindError, "main", errors.New("boom"))
	l.Close()
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero state")
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped()=%d, want 1", l.Dropped())
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got %q", buf.String())
	}
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestFullChannelDrops(t *testing.T) {
	bw := &blockingWriter{started: make(chan struct{}), block: make(chan struct{})}
	l := NewLogger(bw)

	l.Emit(Event{Kind: KindSearchStart})
	<-bw.started

	for i := 0; i < queueSize+10; i++ {
		l.Emit(Event{Kind: KindSearchStart})
	}
	if l.Dropped() == 0 {
		t.Error("expected drops with a full channel")
	}

	close(bw.block)
	l.Close()
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Debug(KindSearchCommit, "search", "bat")
	l.Warn(KindDetailError, "detail", "timeout")
	l.Error(KindError, "main", errors.New("disk full"))
	l.Close()

	lines := decodeLines(t, &buf)
	want := []struct{ level, kind, comp string }{
		{"info", "sys.startup", "main"},
		{"debug", "search.debounce_commit", "search"},
		{"warn", "detail.error", "detail"},
		{"error", "sys.error", "main"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["kind"] != w.kind || lines[i]["comp"] != w.comp {
			t.Errorf("line %d = %v, want %+v", i, lines[i], w)
		}
	}
	if lines[3]["err"] != "disk full" {
		t.Errorf("err=%v", lines[3]["err"])
	}
}

func TestTraceOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.SetTracing(false)
	l.Trace(Event{Kind: KindKeyPress, Comp: "session", Msg: "esc"})
	l.SetTracing(true)
	l.Trace(Event{Kind: KindMsgReceived, Level: LevelError, Comp: "ui", Msg: "tea.KeyMsg"})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected only the enabled trace event, got %d", len(lines))
	}
	if lines[0]["kind"] != "trace.msg_received" || lines[0]["level"] != "debug" {
		t.Errorf("unexpected trace event %v", lines[0])
	}
}

func TestTraceFromEnv(t *testing.T) {
	tests := map[string]bool{"": false, "1": true, "true": true, "0": false, "false": false, "yes": true}
	for v, want := range tests {
		t.Setenv(TraceEnv, v)
		if got := traceFromEnv(); got != want {
			t.Errorf("%s=%q: got %v, want %v", TraceEnv, v, got, want)
		}
	}
}

func TestNilLoggerNeverTraces(t *testing.T) {
	var l *Logger
	l.SetTracing(true)
	if l.Tracing() {
		t.Error("nil logger should never trace")
	}
	l.Trace(Event{Kind: KindKeyPress})
}

func TestRingBufferMirrorsWrittenEvents(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	rb := NewRingBuffer(8)
	l.SetRingBuffer(rb)

	l.Emit(Event{Kind: KindSearchStart, QueryID: "q-1", Dur: time.Second})
	l.Close()

	snap := rb.Snapshot()
	if len(snap) != 1 || snap[0].QueryID != "q-1" || snap[0].Dur != time.Second {
		t.Errorf("ring should hold the original event, got %+v", snap)
	}
}
