package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/popcorn/internal/detail"
	"github.com/abelbrown/popcorn/internal/keys"
	"github.com/abelbrown/popcorn/internal/otel"
	"github.com/abelbrown/popcorn/internal/search"
	"github.com/abelbrown/popcorn/internal/session"
)

// statusTTL is how long a flash message stays in the status bar.
const statusTTL = 3 * time.Second

// Session is the subset of *session.Session the App drives.
type Session interface {
	SetQuery(text string)
	ToggleItem(id string)
	CloseDetail()
	SetUserRating(n int)
	AddWatched() error
	RemoveWatched(id string)
	PressKey(key string) bool
	View() session.View
}

type focusArea int

const (
	focusSearch focusArea = iota
	focusResults
	focusWatched
)

// AppConfig wires the App to a session and its observability sinks.
type AppConfig struct {
	Session  Session
	Notifier *Notifier
	Title    *WindowTitle
	Ring     *otel.RingBuffer
	Events   *otel.Logger

	ShowDebug   bool
	ShowPosters bool // print the poster URL in the detail pane
}

// App is the root Bubble Tea model. It holds no lifeline state of its own:
// every frame renders the latest session.View.
type App struct {
	sess     Session
	notifier *Notifier
	title    *WindowTitle
	ring     *otel.RingBuffer
	events   *otel.Logger
	keys     keyMap

	input   textinput.Model
	spinner spinner.Model

	view          session.View
	focus         focusArea
	cursor        int
	watchedCursor int
	lastTitle     string

	status    string
	statusErr bool
	statusSeq int

	width        int
	height       int
	ready        bool
	debugVisible bool
	showPosters  bool
}

// NewApp creates the App with the search input focused.
func NewApp(cfg AppConfig) App {
	in := textinput.New()
	in.Placeholder = "Search movies..."
	in.Prompt = "🔍 "
	in.CharLimit = 120
	in.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = Stars

	a := App{
		sess:         cfg.Session,
		notifier:     cfg.Notifier,
		title:        cfg.Title,
		ring:         cfg.Ring,
		events:       cfg.Events,
		keys:         defaultKeyMap(),
		input:        in,
		spinner:      sp,
		debugVisible: cfg.ShowDebug,
		showPosters:  cfg.ShowPosters,
	}
	if a.sess != nil {
		a.view = a.sess.View()
	}
	return a
}

// Init starts the cursor blink, the spinner and the change listener.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, a.spinner.Tick}
	if a.notifier != nil {
		cmds = append(cmds, a.notifier.Wait())
	}
	if a.title != nil {
		cmds = append(cmds, tea.SetWindowTitle(a.title.Current()))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.events.Tracing() {
		a.events.Trace(otel.Event{Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.input.Width = max(10, msg.Width/2)
		return a, nil

	case SessionChanged:
		a.refresh()
		var cmds []tea.Cmd
		if a.notifier != nil {
			cmds = append(cmds, a.notifier.Wait())
		}
		if a.title != nil {
			if t := a.title.Current(); t != a.lastTitle {
				a.lastTitle = t
				cmds = append(cmds, tea.SetWindowTitle(t))
			}
		}
		return a, tea.Batch(cmds...)

	case StatusCleared:
		if msg.Seq == a.statusSeq {
			a.status = ""
			a.statusErr = false
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// refresh re-reads the session and keeps cursors in range.
func (a *App) refresh() {
	if a.sess == nil {
		return
	}
	a.view = a.sess.View()
	a.cursor = clamp(a.cursor, len(a.view.Search.Outcome.Results))
	a.watchedCursor = clamp(a.watchedCursor, len(a.view.Watched))
	if a.focus == focusResults && len(a.view.Search.Outcome.Results) == 0 {
		a.setFocus(focusSearch)
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (a *App) setFocus(f focusArea) {
	a.focus = f
	if f == focusSearch {
		a.input.Focus()
	} else {
		a.input.Blur()
	}
}

func (a *App) flash(text string, isErr bool) tea.Cmd {
	a.statusSeq++
	a.status = text
	a.statusErr = isErr
	seq := a.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return StatusCleared{Seq: seq} })
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Debug):
		a.debugVisible = !a.debugVisible
		return a, nil

	case key.Matches(msg, a.keys.Escape):
		// the detail view owns escape while it is open
		if a.sess != nil && a.sess.PressKey(keys.Escape) {
			a.refresh()
			return a, nil
		}
		if a.focus != focusSearch {
			a.setFocus(focusSearch)
		}
		return a, nil

	case key.Matches(msg, a.keys.NextPane):
		a.cycleFocus()
		return a, nil
	}

	if a.focus == focusSearch {
		return a.handleSearchKey(msg)
	}
	return a.handleListKey(msg)
}

func (a *App) cycleFocus() {
	next := a.focus
	for i := 0; i < 3; i++ {
		next = (next + 1) % 3
		if a.canFocus(next) {
			break
		}
	}
	a.setFocus(next)
}

func (a *App) canFocus(f focusArea) bool {
	switch f {
	case focusResults:
		return len(a.view.Search.Outcome.Results) > 0
	case focusWatched:
		return len(a.view.Watched) > 0 && a.view.Detail.ID == ""
	default:
		return true
	}
}

func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Open) || msg.Type == tea.KeyDown {
		if len(a.view.Search.Outcome.Results) > 0 {
			a.setFocus(focusResults)
		}
		return a, nil
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if v := a.input.Value(); v != before && a.sess != nil {
		a.sess.SetQuery(v)
		a.refresh()
	}
	return a, cmd
}

func (a App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := a.view.Search.Outcome.Results

	switch {
	case key.Matches(msg, a.keys.QuitAlt):
		return a, tea.Quit

	case key.Matches(msg, a.keys.FocusFind):
		a.setFocus(focusSearch)
		return a, nil

	case key.Matches(msg, a.keys.Up):
		if a.focus == focusWatched {
			a.watchedCursor = clamp(a.watchedCursor-1, len(a.view.Watched))
		} else {
			a.cursor = clamp(a.cursor-1, len(results))
		}
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.focus == focusWatched {
			a.watchedCursor = clamp(a.watchedCursor+1, len(a.view.Watched))
		} else {
			a.cursor = clamp(a.cursor+1, len(results))
		}
		return a, nil

	case key.Matches(msg, a.keys.Open):
		if a.focus == focusResults && a.cursor < len(results) && a.sess != nil {
			a.sess.ToggleItem(results[a.cursor].ID)
			a.refresh()
		}
		return a, nil

	case key.Matches(msg, a.keys.Add):
		return a.addWatched()

	case key.Matches(msg, a.keys.Remove):
		if a.focus == focusWatched && a.watchedCursor < len(a.view.Watched) && a.sess != nil {
			e := a.view.Watched[a.watchedCursor]
			a.sess.RemoveWatched(e.ID)
			a.refresh()
			if len(a.view.Watched) == 0 {
				a.setFocus(focusSearch)
			}
			return a, a.flash("Removed "+e.Title, false)
		}
		return a, nil
	}

	if n, ok := ratingFor(msg.String()); ok && a.view.Detail.ID != "" && !a.view.AlreadyWatched && a.sess != nil {
		a.sess.SetUserRating(n)
		a.refresh()
	}
	return a, nil
}

func (a App) addWatched() (tea.Model, tea.Cmd) {
	if a.sess == nil || a.view.Detail.ID == "" {
		return a, nil
	}
	title := a.view.Detail.Detail.Title
	err := a.sess.AddWatched()
	a.refresh()

	switch {
	case err == nil:
		return a, a.flash("Added "+title+" to your list", false)
	case errors.Is(err, session.ErrNoRating):
		return a, a.flash("Rate the movie first (1-9, 0 = 10)", true)
	case errors.Is(err, session.ErrAlreadyWatched):
		return a, a.flash("Already on your list", true)
	default:
		return a, a.flash("Nothing to add yet", true)
	}
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.debugVisible {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	header := a.renderHeader()
	status := a.renderStatusBar()
	bodyHeight := a.height - lipgloss.Height(header) - lipgloss.Height(status)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	leftWidth := a.width / 2
	rightWidth := a.width - leftWidth
	left := a.paneStyle(focusResults).Width(leftWidth - 2).Height(bodyHeight - 2).
		Render(a.renderResults(bodyHeight - 2))

	var right string
	if a.view.Detail.ID != "" {
		right = Pane.Width(rightWidth - 2).Height(bodyHeight - 2).Render(a.renderDetail(rightWidth - 6))
	} else {
		right = a.paneStyle(focusWatched).Width(rightWidth - 2).Height(bodyHeight - 2).
			Render(a.renderWatched(bodyHeight - 2))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (a App) paneStyle(f focusArea) lipgloss.Style {
	if a.focus == f {
		return FocusedPane
	}
	return Pane
}

func (a App) renderHeader() string {
	parts := []string{Logo.Render("🍿 popcorn"), a.input.View()}
	if o := a.view.Search.Outcome; o.State == search.StateReady {
		parts = append(parts, ResultCount.Render(fmt.Sprintf("Found %d results", o.Total)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (a App) renderResults(height int) string {
	o := a.view.Search.Outcome
	switch o.State {
	case search.StateIdle:
		return HelpStyle.Render("Start typing to search for movies")
	case search.StateLoading:
		return a.spinner.View() + " Loading..."
	case search.StateFailed:
		return ErrorStyle.Render("⛔ " + o.Message)
	}

	start := 0
	if a.cursor >= height {
		start = a.cursor - height + 1
	}
	var rows []string
	for i := start; i < len(o.Results) && len(rows) < height; i++ {
		r := o.Results[i]
		text := r.Title + " " + YearStyle.Render("("+r.Year+")")
		switch {
		case i == a.cursor && a.focus == focusResults:
			rows = append(rows, SelectedItem.Render(r.Title+" ("+r.Year+")"))
		case r.ID == a.view.Detail.ID:
			rows = append(rows, OpenItem.Render("▸ "+text))
		default:
			rows = append(rows, NormalItem.Render(text))
		}
	}
	return strings.Join(rows, "\n")
}

func (a App) renderDetail(width int) string {
	d := a.view.Detail
	switch d.State {
	case detail.StateLoading:
		return a.spinner.View() + " Loading..."
	case detail.StateFailed:
		return ErrorStyle.Render("⛔ " + d.Message)
	case detail.StateNone:
		return ""
	}

	m := d.Detail
	lines := []string{
		PaneTitle.Render(m.Title),
		DetailLabel.Render(strings.Join(nonEmpty(m.Released, m.Runtime, m.Genre), " • ")),
		Stars.Render("⭐ " + m.IMDbRating + " IMDb rating"),
		"",
	}

	if a.view.AlreadyWatched {
		lines = append(lines, SuccessStyle.Render(fmt.Sprintf("You rated this movie %d ⭐", a.view.WatchedRating)))
	} else {
		lines = append(lines, renderStars(d.UserRating))
		if d.UserRating > 0 {
			lines = append(lines, StatusBarText.Render("press a to add to list"))
		}
	}

	lines = append(lines, "",
		lipgloss.NewStyle().Width(width).Render(m.Plot),
		"",
		DetailLabel.Render("Starring ")+m.Actors,
		DetailLabel.Render("Directed by ")+m.Director,
	)
	if a.showPosters && m.PosterURL != "" && m.PosterURL != "N/A" {
		lines = append(lines, DetailLabel.Render("Poster ")+m.PosterURL)
	}
	return strings.Join(lines, "\n")
}

func renderStars(n int) string {
	full := strings.Repeat("★", n)
	empty := strings.Repeat("☆", detail.MaxRating-n)
	label := "rate 1-9, 0 = 10"
	if n > 0 {
		label = fmt.Sprintf("%d/%d", n, detail.MaxRating)
	}
	return Stars.Render(full) + YearStyle.Render(empty) + "  " + StatusBarText.Render(label)
}

func (a App) renderWatched(height int) string {
	sum := a.view.Summary
	lines := []string{
		PaneTitle.Render("Movies you watched"),
		fmt.Sprintf("#️⃣ %d movies  ⭐ %.2f  🌟 %.2f  ⏳ %.0f min",
			sum.Count, sum.AvgIMDbRating, sum.AvgUserRating, sum.AvgRuntime),
		"",
	}
	for i, e := range a.view.Watched {
		if len(lines) >= height {
			break
		}
		row := fmt.Sprintf("%s  ⭐ %.1f  🌟 %d  ⏳ %d min", e.Title, e.IMDbRating, e.UserRating, e.RuntimeMinutes)
		if i == a.watchedCursor && a.focus == focusWatched {
			lines = append(lines, SelectedItem.Render(row))
		} else {
			lines = append(lines, NormalItem.Render(row))
		}
	}
	return strings.Join(lines, "\n")
}

func (a App) renderStatusBar() string {
	hint := func(k, desc string) string {
		return StatusBarKey.Render(k) + StatusBarText.Render(":"+desc)
	}
	var hints []string
	switch {
	case a.view.Detail.ID != "":
		hints = []string{hint("esc", "close"), hint("1-0", "rate"), hint("a", "add"), hint("enter", "toggle")}
	case a.focus == focusWatched:
		hints = []string{hint("↑↓", "move"), hint("d", "remove"), hint("/", "search")}
	case a.focus == focusResults:
		hints = []string{hint("↑↓", "move"), hint("enter", "details"), hint("/", "search")}
	default:
		hints = []string{hint("enter", "results"), hint("tab", "pane")}
	}
	hints = append(hints, hint("ctrl+d", "events"), hint("ctrl+c", "quit"))

	left := strings.Join(hints, "  ")
	if a.status != "" {
		style := SuccessStyle
		if a.statusErr {
			style = ErrorStyle
		}
		left = style.Render(a.status) + "  " + left
	}
	return StatusBar.Width(a.width).Render(left)
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" && v != "N/A" {
			out = append(out, v)
		}
	}
	return out
}

// Focus returns the focused pane (for testing).
func (a App) Focus() focusArea {
	return a.focus
}

// Status returns the flash message (for testing).
func (a App) Status() string {
	return a.status
}

// Query returns the search input's text (for testing).
func (a App) Query() string {
	return a.input.Value()
}
