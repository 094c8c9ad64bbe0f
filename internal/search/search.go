// Package search drives the query lifeline: text in, one outcome out.
//
// Every SetQuery cancels whatever the previous query started, in-flight
// request and pending debounce delivery alike, before anything new begins.
// Responses commit through a lifeline token, so a superseded request can
// never write state even if its response arrives last.
package search

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/abelbrown/popcorn/internal/debounce"
	"github.com/abelbrown/popcorn/internal/lifeline"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/otel"
)

// DefaultMinQueryLength is the shortest query that reaches the network.
const DefaultMinQueryLength = 2

// Searcher is the part of the catalog client the controller needs.
type Searcher interface {
	Search(ctx context.Context, query string) (omdb.SearchPage, error)
}

// Final statuses handed to Recorder.Finish.
const (
	StatusReady     = "ready"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Recorder keeps a log of issued searches. Errors are logged, never surfaced.
type Recorder interface {
	Start(qid, query string, at time.Time) error
	Finish(qid, status string, count int, dur time.Duration) error
}

// State is the tag of an Outcome.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the current result of the query lifeline. Results and Total
// are set only when Ready; Message only when Failed.
type Outcome struct {
	State   State
	Results []omdb.SearchResult
	Total   int
	Message string
}

// Snapshot is a point-in-time copy of the controller's state.
type Snapshot struct {
	Query          string
	CommittedQuery string // last debounced value
	Outcome        Outcome
}

// Options configures a Controller. Zero values take defaults.
type Options struct {
	MinQueryLength int
	Debounce       time.Duration

	// DebounceFetch issues the request on debounce delivery rather than on
	// every accepted keystroke. Loading is still entered immediately.
	DebounceFetch bool

	// OnSearchStart runs before each search is issued. The session uses it
	// to close the detail view.
	OnSearchStart func()

	// OnChange receives a snapshot after every state change. It may be
	// called from any goroutine.
	OnChange func(Snapshot)

	Events  *otel.Logger
	History Recorder
}

// Controller owns Query, CommittedQuery and the search Outcome.
type Controller struct {
	client Searcher
	opts   Options
	line   lifeline.Line
	gate   *debounce.Gate[string]

	// opMu serializes SetQuery, debounce delivery and Close.
	opMu sync.Mutex

	mu        sync.Mutex
	query     string
	committed string
	outcome   Outcome
	closed    bool

	wg sync.WaitGroup
}

// New returns a Controller in the Idle state.
func New(client Searcher, opts Options) *Controller {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.Debounce <= 0 {
		opts.Debounce = debounce.DefaultInterval
	}
	c := &Controller{client: client, opts: opts}
	c.gate = debounce.New(opts.Debounce, c.onCommitted)
	return c
}

// SetQuery records new query text and moves the lifeline accordingly.
func (c *Controller) SetQuery(text string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.query = text
	c.mu.Unlock()

	c.line.Cancel()
	c.gate.Commit(text)

	if !c.accepts(text) {
		c.setOutcome(Outcome{State: StateIdle})
		c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchIdle, Comp: "search", Query: text})
		c.notify()
		return
	}

	if c.opts.OnSearchStart != nil {
		c.opts.OnSearchStart()
	}

	if c.opts.DebounceFetch {
		c.setOutcome(Outcome{State: StateLoading})
		c.notify()
		return
	}
	c.start(text)
}

func (c *Controller) accepts(q string) bool {
	return utf8.RuneCountInString(q) >= c.opts.MinQueryLength
}

// onCommitted is the debounce gate's delivery.
func (c *Controller) onCommitted(q string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.committed = q
	current := c.query
	c.mu.Unlock()

	c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchCommit, Comp: "search", Query: q})

	if c.opts.DebounceFetch && q == current && c.accepts(q) {
		c.start(q)
		return
	}
	c.notify()
}

// start begins a new generation and issues the request. Caller holds opMu.
func (c *Controller) start(q string) {
	ctx, tok := c.line.Begin(context.Background())
	began := time.Now()

	c.setOutcome(Outcome{State: StateLoading})
	c.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchStart, Comp: "search", QueryID: tok.QID, Query: q})
	if c.opts.History != nil {
		if err := c.opts.History.Start(tok.QID, q, began); err != nil {
			c.storeError(err)
		}
	}
	c.notify()

	c.wg.Add(1)
	go c.run(ctx, tok, q, began)
}

func (c *Controller) run(ctx context.Context, tok lifeline.Token, q string, began time.Time) {
	defer c.wg.Done()

	page, err := c.client.Search(ctx, q)
	dur := time.Since(began)

	if err != nil && omdb.IsCancelled(err) {
		c.cancelled(tok, q, dur)
		return
	}

	var next Outcome
	status := StatusReady
	switch {
	case err != nil:
		next = Outcome{State: StateFailed, Message: omdb.UserMessage(err)}
		status = StatusFailed
	case len(page.Items) == 0:
		next = Outcome{State: StateFailed, Message: omdb.MessageNotFound}
		status = StatusFailed
	default:
		next = Outcome{State: StateReady, Results: page.Items, Total: page.Total}
	}

	committed := c.line.Finish(tok, func() {
		c.mu.Lock()
		c.outcome = next
		c.mu.Unlock()
	})
	if !committed {
		c.cancelled(tok, q, dur)
		return
	}

	ev := otel.Event{Comp: "search", QueryID: tok.QID, Query: q, Dur: dur, Count: len(next.Results)}
	if status == StatusFailed {
		ev.Level, ev.Kind, ev.Msg = otel.LevelWarn, otel.KindSearchError, next.Message
		if err != nil {
			ev.Err = err.Error()
			logging.Warn("search failed", "query", q, "qid", tok.QID, "err", err)
		}
	} else {
		ev.Level, ev.Kind = otel.LevelInfo, otel.KindSearchComplete
	}
	c.opts.Events.Emit(ev)
	c.finish(tok.QID, status, len(next.Results), dur)
	c.notify()
}

func (c *Controller) cancelled(tok lifeline.Token, q string, dur time.Duration) {
	c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchCancel, Comp: "search", QueryID: tok.QID, Query: q, Dur: dur})
	c.finish(tok.QID, StatusCancelled, 0, dur)
}

func (c *Controller) finish(qid, status string, count int, dur time.Duration) {
	if c.opts.History == nil {
		return
	}
	if err := c.opts.History.Finish(qid, status, count, dur); err != nil {
		c.storeError(err)
	}
}

func (c *Controller) storeError(err error) {
	logging.Warn("search history write failed", "err", err)
	c.opts.Events.Error(otel.KindStoreError, "search", err)
}

func (c *Controller) setOutcome(o Outcome) {
	c.mu.Lock()
	c.outcome = o
	c.mu.Unlock()
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.Snapshot())
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.outcome
	if out.Results != nil {
		out.Results = append([]omdb.SearchResult(nil), out.Results...)
	}
	return Snapshot{Query: c.query, CommittedQuery: c.committed, Outcome: out}
}

// Close stops the debounce gate and cancels any in-flight request, then
// waits for the request goroutine to observe it. Nothing commits afterwards.
func (c *Controller) Close() {
	c.opMu.Lock()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.gate.Stop()
	c.line.Cancel()
	c.opMu.Unlock()

	c.wg.Wait()
}
