// Package session is the top-level state behind the UI. It owns the query
// and selection lifelines, the watched list and the key registry, and
// exposes the actions a renderer forwards user input into.
package session

import (
	"errors"
	"time"

	"github.com/abelbrown/popcorn/internal/detail"
	"github.com/abelbrown/popcorn/internal/keys"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/otel"
	"github.com/abelbrown/popcorn/internal/search"
	"github.com/abelbrown/popcorn/internal/watched"
)

// Errors returned by AddWatched.
var (
	ErrNotReady       = errors.New("session: no loaded detail to add")
	ErrNoRating       = errors.New("session: rate the movie before adding it")
	ErrAlreadyWatched = errors.New("session: movie is already on the watched list")
)

// Client is the catalog client both lifelines talk to.
type Client interface {
	search.Searcher
	detail.Fetcher
}

// Options configures a Session.
type Options struct {
	MinQueryLength int
	Debounce       time.Duration
	DebounceFetch  bool

	Title         detail.TitleSink
	BaselineTitle string

	// OnChange fires after any state change. May be called from any
	// goroutine and must not block.
	OnChange func()

	Events  *otel.Logger
	History search.Recorder
}

// View is everything a renderer needs for one frame.
type View struct {
	Search  search.Snapshot
	Detail  detail.Snapshot
	Watched []watched.Entry
	Summary watched.Summary

	// AlreadyWatched is set when the selected id is on the list;
	// WatchedRating is then the rating stored with it.
	AlreadyWatched bool
	WatchedRating  int
}

// Session wires the controllers together.
type Session struct {
	keys    *keys.Registry
	search  *search.Controller
	detail  *detail.Controller
	watched *watched.Store

	onChange func()
	events   *otel.Logger
}

// New builds a Session with an empty query, no selection and an empty
// watched list.
func New(client Client, opts Options) *Session {
	s := &Session{
		keys:     keys.NewRegistry(),
		watched:  watched.NewStore(),
		onChange: opts.OnChange,
		events:   opts.Events,
	}

	s.detail = detail.New(client, detail.Options{
		Keys:          s.keys,
		Title:         opts.Title,
		BaselineTitle: opts.BaselineTitle,
		OnClose:       s.CloseDetail,
		OnChange:      func(detail.Snapshot) { s.notify() },
		Events:        opts.Events,
	})
	s.search = search.New(client, search.Options{
		MinQueryLength: opts.MinQueryLength,
		Debounce:       opts.Debounce,
		DebounceFetch:  opts.DebounceFetch,
		OnSearchStart:  s.CloseDetail,
		OnChange:       func(search.Snapshot) { s.notify() },
		Events:         opts.Events,
		History:        opts.History,
	})
	return s
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// SetQuery forwards query text to the search lifeline.
func (s *Session) SetQuery(text string) {
	s.search.SetQuery(text)
}

// SelectItem opens the detail view for id.
func (s *Session) SelectItem(id string) {
	s.detail.Select(id)
}

// ToggleItem selects id, or closes the detail view if id is already selected.
func (s *Session) ToggleItem(id string) {
	if id != "" && s.detail.Snapshot().ID == id {
		s.CloseDetail()
		return
	}
	s.detail.Select(id)
}

// CloseDetail clears the selection.
func (s *Session) CloseDetail() {
	s.detail.Select("")
}

// SetUserRating sets the pending rating for the selected movie.
func (s *Session) SetUserRating(n int) {
	s.detail.SetUserRating(n)
}

// AddWatched appends the selected movie with its pending rating and closes
// the detail view.
func (s *Session) AddWatched() error {
	snap := s.detail.Snapshot()
	switch {
	case snap.State != detail.StateReady:
		return ErrNotReady
	case snap.UserRating < 1:
		return ErrNoRating
	case s.IsWatched(snap.ID):
		return ErrAlreadyWatched
	}

	entry := watched.FromDetail(snap.Detail, snap.UserRating)
	s.watched.Add(entry)
	logging.Info("watched added", "id", entry.ID, "rating", entry.UserRating)
	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindWatchedAdd, Comp: "session", ItemID: entry.ID, Count: entry.UserRating, Msg: entry.Title})

	s.CloseDetail()
	s.notify()
	return nil
}

// RemoveWatched drops every entry with id.
func (s *Session) RemoveWatched(id string) {
	n := s.watched.Remove(id)
	if n == 0 {
		return
	}
	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindWatchedRemove, Comp: "session", ItemID: id, Count: n})
	s.notify()
}

// PressKey dispatches a global key to whoever currently listens for it.
// Reports whether any listener ran.
func (s *Session) PressKey(key string) bool {
	handled := s.keys.Dispatch(key)
	s.events.Trace(otel.Event{Kind: otel.KindKeyPress, Comp: "session", Msg: key, Count: boolCount(handled)})
	return handled
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsWatched reports whether id is on the watched list.
func (s *Session) IsWatched(id string) bool {
	_, ok := s.watched.Find(id)
	return ok
}

// WatchedRating returns the stored user rating for id, or 0.
func (s *Session) WatchedRating(id string) int {
	e, _ := s.watched.Find(id)
	return e.UserRating
}

// Listeners returns the number of live listeners for key.
func (s *Session) Listeners(key string) int {
	return s.keys.Count(key)
}

// View assembles the current state of every lifeline.
func (s *Session) View() View {
	v := View{
		Search:  s.search.Snapshot(),
		Detail:  s.detail.Snapshot(),
		Watched: s.watched.Entries(),
		Summary: s.watched.Summary(),
	}
	if v.Detail.ID != "" {
		if e, ok := s.watched.Find(v.Detail.ID); ok {
			v.AlreadyWatched = true
			v.WatchedRating = e.UserRating
		}
	}
	return v
}

// Close tears down both lifelines. The window title is back at its
// baseline when Close returns.
func (s *Session) Close() {
	s.search.Close()
	s.detail.Close()
}
