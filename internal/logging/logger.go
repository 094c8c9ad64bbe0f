// Package logging is popcorn's human-readable debug log. The TUI owns the
// terminal, so records go to one file per day under the log directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// LevelEnv selects the minimum level ("debug", "info", "warn", "error").
	LevelEnv = "POPCORN_LOG_LEVEL"

	// MaxAge is how long daily files are kept before Open prunes them.
	MaxAge = 7 * 24 * time.Hour

	filePrefix = "popcorn-"
	fileSuffix = ".log"
	dayLayout  = "2006-01-02"
)

var (
	mu     sync.RWMutex
	logger *log.Logger
	file   *os.File
)

// Open starts logging to today's file in dir and removes files older than
// MaxAge. Calling Open again switches files.
func Open(dir, version string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	now := time.Now()
	f, err := os.OpenFile(filepath.Join(dir, fileName(now)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	prev := file
	file = f
	logger = newLogger(f)
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	Info("popcorn started", "version", version, "pid", os.Getpid())
	if n, err := prune(dir, now.Add(-MaxAge)); err != nil {
		Warn("prune logs", "err", err)
	} else if n > 0 {
		Debug("pruned old logs", "files", n)
	}
	return nil
}

// SetOutput logs to w instead of a file. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// Close writes a final record and closes the current file.
func Close() {
	Info("popcorn shutting down")

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           levelFromEnv(),
	})
}

func levelFromEnv() log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(os.Getenv(LevelEnv)))
	if err != nil || os.Getenv(LevelEnv) == "" {
		return log.DebugLevel
	}
	return lvl
}

func fileName(t time.Time) string {
	return filePrefix + t.Format(dayLayout) + fileSuffix
}

// prune removes daily files dated before cutoff. Other files are left alone.
func prune(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	oldest := cutoff.Format(dayLayout)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse(dayLayout, day); err != nil || day >= oldest {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Error(msg, keyvals...)
	}
}

// WithPrefix returns a child logger tagged with prefix, or nil when logging
// is off.
func WithPrefix(prefix string) *log.Logger {
	if l := current(); l != nil {
		return l.WithPrefix(prefix)
	}
	return nil
}
