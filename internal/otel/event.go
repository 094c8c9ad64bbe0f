// Package otel provides structured observability for popcorn.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer provides live in-memory inspection for the debug overlay.
//
// Every event on a lifeline carries the QueryID of the token that produced it,
// so a superseded search can be followed from start to cancel.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Search lifeline
	KindSearchStart    EventKind = "search.start"
	KindSearchComplete EventKind = "search.complete"
	KindSearchError    EventKind = "search.error"
	KindSearchCancel   EventKind = "search.cancel"
	KindSearchIdle     EventKind = "search.idle"
	KindSearchCommit   EventKind = "search.debounce_commit"

	// Detail lifeline
	KindDetailStart    EventKind = "detail.start"
	KindDetailComplete EventKind = "detail.complete"
	KindDetailError    EventKind = "detail.error"
	KindDetailCancel   EventKind = "detail.cancel"

	// Process-wide resources owned by the detail lifeline
	KindTitleApply    EventKind = "title.apply"
	KindTitleRestore  EventKind = "title.restore"
	KindKeyRegister   EventKind = "keys.register"
	KindKeyUnregister EventKind = "keys.unregister"

	// Watched list
	KindWatchedAdd    EventKind = "watched.add"
	KindWatchedRemove EventKind = "watched.remove"

	// History store
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events, only emitted with POPCORN_TRACE set
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "search", "detail", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire app run
	QueryID   string         `json:"qid,omitempty"`        // lifeline token correlation ID
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	ItemID    string         `json:"item_id,omitempty"` // imdb id for detail/watched events
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
