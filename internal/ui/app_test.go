package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/popcorn/internal/detail"
	"github.com/abelbrown/popcorn/internal/keys"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/search"
	"github.com/abelbrown/popcorn/internal/session"
	"github.com/abelbrown/popcorn/internal/watched"
)

// mockSession records the actions the App forwards.
type mockSession struct {
	queries  []string
	toggled  []string
	ratings  []int
	removed  []string
	pressed  []string
	adds     int
	addErr   error
	escapeOK bool
	view     session.View
}

func (m *mockSession) SetQuery(text string)    { m.queries = append(m.queries, text) }
func (m *mockSession) ToggleItem(id string)    { m.toggled = append(m.toggled, id) }
func (m *mockSession) CloseDetail()            { m.view.Detail = detail.Snapshot{} }
func (m *mockSession) SetUserRating(n int)     { m.ratings = append(m.ratings, n) }
func (m *mockSession) RemoveWatched(id string) { m.removed = append(m.removed, id) }
func (m *mockSession) View() session.View      { return m.view }

func (m *mockSession) AddWatched() error {
	m.adds++
	return m.addErr
}

func (m *mockSession) PressKey(k string) bool {
	m.pressed = append(m.pressed, k)
	if m.escapeOK {
		m.view.Detail = detail.Snapshot{}
		return true
	}
	return false
}

func readyView() session.View {
	return session.View{Search: search.Snapshot{
		Query: "batman",
		Outcome: search.Outcome{State: search.StateReady, Total: 594, Results: []omdb.SearchResult{
			{ID: "tt0372784", Title: "Batman Begins", Year: "2005"},
			{ID: "tt0468569", Title: "The Dark Knight", Year: "2008"},
			{ID: "tt0096895", Title: "Batman", Year: "1989"},
		}},
	}}
}

func newTestApp(m *mockSession) App {
	app := NewApp(AppConfig{Session: m})
	app.ready = true
	app.width = 100
	app.height = 30
	return app
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, app App, msgs ...tea.Msg) App {
	t.Helper()
	for _, msg := range msgs {
		model, _ := app.Update(msg)
		app = model.(App)
	}
	return app
}

func TestTypingForwardsQuery(t *testing.T) {
	m := &mockSession{}
	app := press(t, newTestApp(m), runes("b"), runes("a"), tea.KeyMsg{Type: tea.KeyBackspace})

	want := []string{"b", "ba", "b"}
	if strings.Join(m.queries, ",") != strings.Join(want, ",") {
		t.Errorf("queries %v, want %v", m.queries, want)
	}
	if app.Query() != "b" {
		t.Errorf("input %q", app.Query())
	}
}

func TestSearchFocusKeepsLettersOutOfCommands(t *testing.T) {
	m := &mockSession{view: readyView()}
	press(t, newTestApp(m), runes("q"), runes("a"), runes("5"))

	if m.adds != 0 || len(m.ratings) != 0 {
		t.Errorf("letters in the search box triggered actions: adds=%d ratings=%v", m.adds, m.ratings)
	}
	if len(m.queries) != 3 {
		t.Errorf("queries %v", m.queries)
	}
}

func TestEnterMovesToResultsAndOpensDetail(t *testing.T) {
	m := &mockSession{view: readyView()}
	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter})
	if app.Focus() != focusResults {
		t.Fatalf("focus %v, want results", app.Focus())
	}

	app = press(t, app, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.toggled) != 1 || m.toggled[0] != "tt0468569" {
		t.Errorf("toggled %v", m.toggled)
	}
	if app.cursor != 1 {
		t.Errorf("cursor %d", app.cursor)
	}
}

func TestEnterWithoutResultsStaysInSearch(t *testing.T) {
	m := &mockSession{}
	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter})
	if app.Focus() != focusSearch {
		t.Errorf("focus %v", app.Focus())
	}
}

func TestEscapeGoesToSessionFirst(t *testing.T) {
	m := &mockSession{view: readyView(), escapeOK: true}
	m.view.Detail = detail.Snapshot{ID: "tt0468569", State: detail.StateReady}

	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.pressed) != 1 || m.pressed[0] != keys.Escape {
		t.Errorf("pressed %v", m.pressed)
	}
	if app.Focus() != focusResults {
		t.Error("handled escape should not move focus")
	}
	if app.view.Detail.ID != "" {
		t.Error("view not refreshed after escape")
	}

	m.escapeOK = false
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.Focus() != focusSearch {
		t.Errorf("unhandled escape should return to search, focus %v", app.Focus())
	}
}

func TestRatingAndAdd(t *testing.T) {
	m := &mockSession{view: readyView()}
	m.view.Detail = detail.Snapshot{ID: "tt0468569", State: detail.StateReady, Detail: omdb.MovieDetail{Title: "The Dark Knight"}}

	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter}, runes("9"), runes("0"), runes("a"))
	if len(m.ratings) != 2 || m.ratings[0] != 9 || m.ratings[1] != 10 {
		t.Errorf("ratings %v", m.ratings)
	}
	if m.adds != 1 {
		t.Errorf("adds %d", m.adds)
	}
	if !strings.Contains(app.Status(), "The Dark Knight") {
		t.Errorf("status %q", app.Status())
	}

	m.addErr = session.ErrNoRating
	app = press(t, app, runes("a"))
	if !strings.Contains(app.Status(), "Rate the movie") {
		t.Errorf("status %q", app.Status())
	}
}

func TestAlreadyWatchedIgnoresRatingKeys(t *testing.T) {
	m := &mockSession{view: readyView()}
	m.view.Detail = detail.Snapshot{ID: "tt0468569", State: detail.StateReady, Detail: omdb.MovieDetail{Title: "The Dark Knight"}}
	m.view.AlreadyWatched = true
	m.view.WatchedRating = 8

	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter}, runes("3"))
	if len(m.ratings) != 0 {
		t.Errorf("ratings %v", m.ratings)
	}
	if !strings.Contains(app.View(), "You rated this movie 8 ⭐") {
		t.Errorf("view missing stored rating:\n%s", app.View())
	}
}

func TestRemoveFromWatched(t *testing.T) {
	m := &mockSession{}
	m.view.Watched = []watched.Entry{{ID: "tt1", Title: "One"}, {ID: "tt2", Title: "Two"}}

	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyTab})
	if app.Focus() != focusWatched {
		t.Fatalf("focus %v, want watched", app.Focus())
	}
	app = press(t, app, runes("j"), runes("d"))
	if len(m.removed) != 1 || m.removed[0] != "tt2" {
		t.Errorf("removed %v", m.removed)
	}
}

func TestSessionChangedRefreshesAndSetsTitle(t *testing.T) {
	m := &mockSession{}
	n := NewNotifier()
	title := NewWindowTitle("popcorn", n.Notify)
	app := NewApp(AppConfig{Session: m, Notifier: n, Title: title})
	app.ready = true
	app.width, app.height = 100, 30

	m.view = readyView()
	title.SetTitle("🎬 The Dark Knight")

	model, cmd := app.Update(SessionChanged{})
	app = model.(App)
	if cmd == nil {
		t.Fatal("expected follow-up commands")
	}
	if len(app.view.Search.Outcome.Results) != 3 {
		t.Errorf("view not refreshed")
	}
	if app.lastTitle != "🎬 The Dark Knight" {
		t.Errorf("lastTitle %q", app.lastTitle)
	}
	if !strings.Contains(app.View(), "Found 594 results") {
		t.Errorf("header missing result count:\n%s", app.View())
	}
}

func TestRefreshClampsCursor(t *testing.T) {
	m := &mockSession{view: readyView()}
	app := press(t, newTestApp(m), tea.KeyMsg{Type: tea.KeyEnter}, runes("j"), runes("j"))
	if app.cursor != 2 {
		t.Fatalf("cursor %d", app.cursor)
	}

	m.view = session.View{Search: search.Snapshot{Outcome: search.Outcome{State: search.StateLoading}}}
	app = press(t, app, SessionChanged{})
	if app.cursor != 0 || app.Focus() != focusSearch {
		t.Errorf("cursor %d focus %v", app.cursor, app.Focus())
	}
}

func TestViewStates(t *testing.T) {
	cases := []struct {
		name string
		out  search.Outcome
		want string
	}{
		{"idle", search.Outcome{State: search.StateIdle}, "Start typing"},
		{"loading", search.Outcome{State: search.StateLoading}, "Loading..."},
		{"failed", search.Outcome{State: search.StateFailed, Message: "Movie not found"}, "Movie not found"},
		{"ready", readyView().Search.Outcome, "Batman Begins"},
	}
	for _, tc := range cases {
		m := &mockSession{view: session.View{Search: search.Snapshot{Outcome: tc.out}}}
		if v := newTestApp(m).View(); !strings.Contains(v, tc.want) {
			t.Errorf("%s: view missing %q:\n%s", tc.name, tc.want, v)
		}
	}
}

func TestDetailPosterLine(t *testing.T) {
	v := readyView()
	v.Detail = detail.Snapshot{ID: "tt0468569", State: detail.StateReady, Detail: omdb.MovieDetail{
		ID: "tt0468569", Title: "The Dark Knight", PosterURL: "https://img/dk.jpg",
	}}

	app := newTestApp(&mockSession{view: v})
	if strings.Contains(app.renderDetail(60), "https://img/dk.jpg") {
		t.Error("poster hidden by default")
	}

	app = NewApp(AppConfig{Session: &mockSession{view: v}, ShowPosters: true})
	if !strings.Contains(app.renderDetail(60), "Poster https://img/dk.jpg") {
		t.Errorf("expected poster line:\n%s", app.renderDetail(60))
	}

	v.Detail.Detail.PosterURL = "N/A"
	app = NewApp(AppConfig{Session: &mockSession{view: v}, ShowPosters: true})
	if strings.Contains(app.renderDetail(60), "Poster") {
		t.Error("N/A poster should be hidden")
	}
}

func TestViewBeforeReady(t *testing.T) {
	app := NewApp(AppConfig{})
	if app.View() != "Loading..." {
		t.Errorf("got %q", app.View())
	}
}

func TestStatusClearedOnlyForLatest(t *testing.T) {
	app := newTestApp(&mockSession{})
	app.flash("first", false)
	app.flash("second", false)

	app = press(t, app, StatusCleared{Seq: 1})
	if app.Status() != "second" {
		t.Errorf("stale clear removed status %q", app.Status())
	}
	app = press(t, app, StatusCleared{Seq: 2})
	if app.Status() != "" {
		t.Errorf("status %q", app.Status())
	}
}

func TestCtrlCQuits(t *testing.T) {
	_, cmd := newTestApp(&mockSession{}).Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestNotifierCoalesces(t *testing.T) {
	n := NewNotifier()
	n.Notify()
	n.Notify()
	n.Notify()

	done := make(chan tea.Msg, 1)
	go func() { done <- n.Wait()() }()
	select {
	case msg := <-done:
		if _, ok := msg.(SessionChanged); !ok {
			t.Errorf("got %T", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}

	go func() { done <- n.Wait()() }()
	select {
	case <-done:
		t.Fatal("coalesced signals should wake Wait only once")
	case <-time.After(30 * time.Millisecond):
	}
	n.Notify()
	<-done
}
