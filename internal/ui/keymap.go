package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings that are not plain text input.
type keyMap struct {
	Quit      key.Binding
	QuitAlt   key.Binding
	Escape    key.Binding
	NextPane  key.Binding
	FocusFind key.Binding
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	Add       key.Binding
	Remove    key.Binding
	Debug     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		QuitAlt:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		NextPane:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pane")),
		FocusFind: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to list")),
		Remove:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		Debug:     key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "events")),
	}
}

// ratingFor maps the digit keys to a 1..10 rating, with 0 meaning 10.
func ratingFor(s string) (int, bool) {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	n := int(s[0] - '0')
	if n == 0 {
		n = 10
	}
	return n, true
}
