// Package history keeps a SQLite log of issued searches and their outcomes.
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	_ "modernc.org/sqlite"
)

// StatusStarted marks a search whose outcome has not been recorded yet.
const StatusStarted = "started"

// Entry is one recorded search.
type Entry struct {
	QID      string
	Query    string
	Status   string // started, ready, failed, cancelled
	Count    int
	Started  time.Time
	Duration time.Duration
}

// Store handles SQLite persistence. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	connStr := path
	memory := path == ":memory:"
	if memory {
		// a named shared-cache db keeps every pooled connection on the same
		// data without leaking it to other stores in the process
		connStr = fmt.Sprintf("file:history-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		qid TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		result_count INTEGER DEFAULT 0,
		started_ms INTEGER NOT NULL,
		duration_ms INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_searches_started ON searches(started_ms DESC);
	CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Start records a newly issued search.
func (s *Store) Start(qid, query string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO searches (qid, query, status, started_ms) VALUES (?, ?, ?, ?)`,
		qid, query, StatusStarted, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record search start: %w", err)
	}
	return nil
}

// Finish records the outcome of a search started with qid.
func (s *Store) Finish(qid, status string, count int, dur time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE searches SET status = ?, result_count = ?, duration_ms = ? WHERE qid = ?`,
		status, count, dur.Milliseconds(), qid,
	)
	if err != nil {
		return fmt.Errorf("record search finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record search finish: unknown qid %s", qid)
	}
	return nil
}

// Recent returns up to limit searches, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(`
		SELECT qid, query, status, result_count, started_ms, duration_ms
		FROM searches ORDER BY started_ms DESC, rowid DESC LIMIT ?`, limit)
}

// Queries returns distinct query texts, most recently used first.
func (s *Store) Queries(limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT query FROM searches GROUP BY query
		ORDER BY MAX(started_ms) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Search fuzzy-matches term against past query texts, best match first.
func (s *Store) Search(term string, limit int) ([]string, error) {
	term = strings.TrimSpace(term)
	all, err := s.Queries(-1)
	if err != nil {
		return nil, err
	}
	if term == "" {
		if limit >= 0 && len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	ranks := fuzzy.RankFindNormalizedFold(term, all)
	sort.Stable(ranks)

	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		if limit >= 0 && len(out) == limit {
			break
		}
		out = append(out, r.Target)
	}
	return out, nil
}

// Stats counts recorded searches by status.
func (s *Store) Stats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM searches GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// Prune deletes searches started before cutoff.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM searches WHERE started_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(q string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var startedMs, durMs int64
		if err := rows.Scan(&e.QID, &e.Query, &e.Status, &e.Count, &startedMs, &durMs); err != nil {
			return nil, err
		}
		e.Started = time.UnixMilli(startedMs)
		e.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
