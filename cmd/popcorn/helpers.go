package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/abelbrown/popcorn/internal/config"
	"github.com/abelbrown/popcorn/internal/history"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/otel"
)

// dataDir returns ~/.popcorn/, creating it if needed.
func dataDir() string {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: create %s: %v\n", dir, err)
	}
	return dir
}

func historyPath() string {
	return filepath.Join(dataDir(), "history.db")
}

func eventLogPath() string {
	return filepath.Join(dataDir(), "popcorn.events.jsonl")
}

// newClient builds the catalog client from config.
func newClient(c *config.Config) *omdb.Client {
	var limiter *rate.Limiter
	if c.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.API.RateLimit), c.API.RateBurst)
	}
	return omdb.New(
		omdb.WithBaseURL(c.API.BaseURL),
		omdb.WithAPIKey(c.API.APIKey),
		omdb.WithTimeout(c.RequestTimeout()),
		omdb.WithLimiter(limiter),
	)
}

// openHistory opens the search history, or returns nil and logs why not.
func openHistory() *history.Store {
	st, err := history.Open(historyPath())
	if err != nil {
		logging.Warn("search history disabled", "err", err)
		return nil
	}
	return st
}

// openEventLog opens the JSONL event log for appending. Falls back to a
// discarding logger if the file cannot be opened.
func openEventLog() (*otel.Logger, func()) {
	f, err := os.OpenFile(eventLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("event log disabled", "err", err)
		l := otel.NewNullLogger()
		return l, l.Close
	}
	l := otel.NewLogger(io.Writer(f))
	return l, func() {
		l.Close()
		f.Close()
	}
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
