// Package lifeline binds asynchronous work to a changing key.
//
// A Line holds at most one live Token. Begin cancels the previous token's
// context before handing out the next one, and Commit only runs a mutation
// for the token that is still current. Together they guarantee that a
// superseded request can never write state, whatever order responses arrive in.
package lifeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Token identifies one generation of work on a Line.
type Token struct {
	Gen uint64
	QID string // correlation id for logs and search history
}

// Valid reports whether the token was issued by Begin.
func (t Token) Valid() bool {
	return t.Gen != 0
}

// Line is a single lifeline. The zero value is ready to use.
type Line struct {
	mu     sync.Mutex
	gen    uint64
	live   bool
	cancel context.CancelFunc
}

// Begin voids the current token, cancels its context, and starts a new
// generation derived from parent.
func (l *Line) Begin(parent context.Context) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	prev := l.cancel
	l.gen++
	l.live = true
	l.cancel = cancel
	tok := Token{Gen: l.gen, QID: uuid.NewString()}
	l.mu.Unlock()

	if prev != nil {
		prev()
	}
	return ctx, tok
}

// Cancel voids the current token and cancels its context. The next Begin
// still gets a fresh generation.
func (l *Line) Cancel() {
	l.mu.Lock()
	prev := l.cancel
	l.cancel = nil
	l.live = false
	l.gen++
	l.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Current reports whether tok is the live token.
func (l *Line) Current(tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live && tok.Gen == l.gen
}

// Commit runs fn while holding the line's lock if tok is still current.
// Returns false, without calling fn, for superseded or cancelled tokens.
// fn must not call back into the Line.
func (l *Line) Commit(tok Token, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.live || tok.Gen != l.gen {
		return false
	}
	fn()
	return true
}

// Finish commits fn and releases the token's context. The token stays
// current, so later Commits for it still succeed until the key changes.
func (l *Line) Finish(tok Token, fn func()) bool {
	l.mu.Lock()
	if !l.live || tok.Gen != l.gen {
		l.mu.Unlock()
		return false
	}
	fn()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}
