// Package ui provides the Bubble Tea TUI for popcorn.
package ui

// SessionChanged is sent when any session lifeline changed state. It carries
// no payload; the App re-reads the session view.
type SessionChanged struct{}

// StatusCleared is sent when a transient status message expires.
type StatusCleared struct {
	Seq int
}
