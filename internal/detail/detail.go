// Package detail drives the selection lifeline.
//
// While a selection is non-empty the controller owns two process-wide
// resources: the escape listener in the key registry and the window title.
// Both are released on every exit path (new selection, close, unmount)
// before anything for the next selection is acquired.
package detail

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/popcorn/internal/keys"
	"github.com/abelbrown/popcorn/internal/lifeline"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/otel"
)

// DefaultBaselineTitle is the window title when no detail is shown.
const DefaultBaselineTitle = "popcorn"

// TitlePrefix precedes the movie title while its detail is shown.
const TitlePrefix = "🎬 "

// MaxRating is the top of the user rating scale.
const MaxRating = 10

// Fetcher is the part of the catalog client the controller needs.
type Fetcher interface {
	Detail(ctx context.Context, id string) (omdb.MovieDetail, error)
}

// TitleSink receives window title changes.
type TitleSink interface {
	SetTitle(title string)
}

// State is the detail lifeline's state.
type State int

const (
	StateNone State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
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

// Snapshot is a point-in-time copy of the detail state.
type Snapshot struct {
	ID         string
	State      State
	Detail     omdb.MovieDetail
	Message    string
	UserRating int
}

// Options configures a Controller.
type Options struct {
	Keys          *keys.Registry
	Title         TitleSink
	BaselineTitle string

	// OnClose runs when escape is pressed while a selection is live. When
	// nil the controller clears its own selection.
	OnClose func()

	// OnChange may be called from any goroutine.
	OnChange func(Snapshot)

	Events *otel.Logger
}

// Controller owns the selected id and its fetched detail.
type Controller struct {
	client Fetcher
	opts   Options
	line   lifeline.Line

	// opMu serializes selection changes with response commits, so a commit
	// never applies a title after its selection was torn down.
	opMu         sync.Mutex
	unregister   func()
	titleApplied bool

	mu     sync.Mutex
	id     string
	state  State
	detail omdb.MovieDetail
	msg    string
	rating int

	wg sync.WaitGroup
}

// New returns a Controller with no selection.
func New(client Fetcher, opts Options) *Controller {
	if opts.Keys == nil {
		opts.Keys = keys.NewRegistry()
	}
	if opts.BaselineTitle == "" {
		opts.BaselineTitle = DefaultBaselineTitle
	}
	return &Controller{client: client, opts: opts}
}

// Select changes the selection. "" clears it. Selecting the current id
// again is a no-op.
func (c *Controller) Select(id string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	same := id == c.id
	c.mu.Unlock()
	if same {
		return
	}

	c.teardown()

	c.mu.Lock()
	c.id = id
	c.detail = omdb.MovieDetail{}
	c.msg = ""
	c.rating = 0
	c.state = StateNone
	if id != "" {
		c.state = StateLoading
	}
	c.mu.Unlock()

	if id == "" {
		c.notify()
		return
	}

	c.unregister = c.opts.Keys.Register(keys.Escape, c.onEscape)
	c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyRegister, Comp: "detail", ItemID: id, Msg: keys.Escape})

	ctx, tok := c.line.Begin(context.Background())
	c.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDetailStart, Comp: "detail", QueryID: tok.QID, ItemID: id})
	c.notify()

	c.wg.Add(1)
	go c.run(ctx, tok, id)
}

// teardown releases everything the previous selection acquired, in order:
// fetch, key listener, title. Caller holds opMu.
func (c *Controller) teardown() {
	c.line.Cancel()

	c.mu.Lock()
	prev := c.id
	c.mu.Unlock()

	if c.unregister != nil {
		c.unregister()
		c.unregister = nil
		c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyUnregister, Comp: "detail", ItemID: prev, Msg: keys.Escape})
	}
	if c.titleApplied {
		c.titleApplied = false
		c.setTitle(c.opts.BaselineTitle)
		c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindTitleRestore, Comp: "detail", ItemID: prev})
	}
}

func (c *Controller) onEscape() {
	if c.opts.OnClose != nil {
		c.opts.OnClose()
		return
	}
	c.Select("")
}

func (c *Controller) run(ctx context.Context, tok lifeline.Token, id string) {
	defer c.wg.Done()

	began := time.Now()
	d, err := c.client.Detail(ctx, id)
	dur := time.Since(began)

	if err != nil && omdb.IsCancelled(err) {
		c.cancelled(tok, id, dur)
		return
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	committed := c.line.Finish(tok, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = StateFailed
			c.msg = omdb.UserMessage(err)
			return
		}
		c.state = StateReady
		c.detail = d
	})
	if !committed {
		c.cancelled(tok, id, dur)
		return
	}

	if err != nil {
		logging.Warn("detail fetch failed", "id", id, "qid", tok.QID, "err", err)
		c.opts.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindDetailError, Comp: "detail", QueryID: tok.QID, ItemID: id, Dur: dur, Err: err.Error()})
	} else {
		c.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDetailComplete, Comp: "detail", QueryID: tok.QID, ItemID: id, Dur: dur})
		if d.Title != "" {
			c.titleApplied = true
			c.setTitle(TitlePrefix + d.Title)
			c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindTitleApply, Comp: "detail", QueryID: tok.QID, ItemID: id, Msg: d.Title})
		}
	}
	c.notify()
}

func (c *Controller) cancelled(tok lifeline.Token, id string, dur time.Duration) {
	c.opts.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindDetailCancel, Comp: "detail", QueryID: tok.QID, ItemID: id, Dur: dur})
}

func (c *Controller) setTitle(title string) {
	if c.opts.Title != nil {
		c.opts.Title.SetTitle(title)
	}
}

// SetUserRating sets the pending rating for the current selection,
// clamped to 0..MaxRating. Ignored with no selection.
func (c *Controller) SetUserRating(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxRating {
		n = MaxRating
	}

	c.mu.Lock()
	if c.id == "" {
		c.mu.Unlock()
		return
	}
	c.rating = n
	c.mu.Unlock()
	c.notify()
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
	return Snapshot{ID: c.id, State: c.state, Detail: c.detail, Message: c.msg, UserRating: c.rating}
}

// Close clears the selection, releasing its resources, and waits for any
// fetch goroutine to exit.
func (c *Controller) Close() {
	c.Select("")
	c.wg.Wait()
}
