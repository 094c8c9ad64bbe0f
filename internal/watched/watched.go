// Package watched holds the session's watched list and its aggregates.
package watched

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/abelbrown/popcorn/internal/omdb"
)

// Entry is one watched movie with the user's own rating.
type Entry struct {
	ID             string
	Title          string
	Year           string
	PosterURL      string
	IMDbRating     float64
	RuntimeMinutes int
	UserRating     int
}

// Summary aggregates the list. Averages of an empty list are 0.
type Summary struct {
	Count         int
	AvgIMDbRating float64
	AvgUserRating float64
	AvgRuntime    float64
}

// Store is an insertion-ordered, in-memory watched list. Add does not
// deduplicate; callers that need unique ids check Find first.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewStore returns an empty list.
func NewStore() *Store {
	return &Store{}
}

// Add appends e.
func (s *Store) Add(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Remove drops every entry with id and reports how many were removed.
func (s *Store) Remove(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.ID == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return removed
}

// Entries returns a copy of the list in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Find returns the first entry with id.
func (s *Store) Find(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Summary computes the aggregates from the current list.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Count: len(s.entries)}
	if sum.Count == 0 {
		return sum
	}
	var imdb, user, runtime float64
	for _, e := range s.entries {
		imdb += e.IMDbRating
		user += float64(e.UserRating)
		runtime += float64(e.RuntimeMinutes)
	}
	n := float64(sum.Count)
	sum.AvgIMDbRating = imdb / n
	sum.AvgUserRating = user / n
	sum.AvgRuntime = runtime / n
	return sum
}

// FromDetail normalizes a fetched detail record into an Entry.
func FromDetail(d omdb.MovieDetail, userRating int) Entry {
	return Entry{
		ID:             d.ID,
		Title:          d.Title,
		Year:           d.Year,
		PosterURL:      d.PosterURL,
		IMDbRating:     parseRating(d.IMDbRating),
		RuntimeMinutes: leadingInt(d.Runtime),
		UserRating:     userRating,
	}
}

// leadingInt extracts the integer prefix of s ("152 min" -> 152). Anything
// without leading digits, including "N/A", yields 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func parseRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
