package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Notifier coalesces change signals from background goroutines into
// SessionChanged messages. Notify never blocks, so it is safe to call while
// holding locks or from inside Update.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a Notifier with no pending signal.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify records that something changed.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Wait returns a Cmd that blocks until the next signal.
func (n *Notifier) Wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return SessionChanged{}
	}
}

// WindowTitle is the terminal title sink. Controllers write to it from any
// goroutine; the App turns changes into tea.SetWindowTitle commands.
type WindowTitle struct {
	mu     sync.Mutex
	title  string
	notify func()
}

// NewWindowTitle returns a sink starting at baseline.
func NewWindowTitle(baseline string, notify func()) *WindowTitle {
	return &WindowTitle{title: baseline, notify: notify}
}

// SetTitle implements detail.TitleSink.
func (w *WindowTitle) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
	if w.notify != nil {
		w.notify()
	}
}

// Current returns the latest title.
func (w *WindowTitle) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}
