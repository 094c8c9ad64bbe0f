package watched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/popcorn/internal/omdb"
)

func darkKnight() omdb.MovieDetail {
	return omdb.MovieDetail{
		ID:         "tt0468569",
		Title:      "The Dark Knight",
		Year:       "2008",
		PosterURL:  "https://example.com/dk.jpg",
		Runtime:    "152 min",
		IMDbRating: "9.0",
	}
}

func TestFromDetailNormalizes(t *testing.T) {
	e := FromDetail(darkKnight(), 8)

	assert.Equal(t, "tt0468569", e.ID)
	assert.Equal(t, 152, e.RuntimeMinutes)
	assert.InDelta(t, 9.0, e.IMDbRating, 1e-9)
	assert.Equal(t, 8, e.UserRating)
}

func TestFromDetailNonNumericFields(t *testing.T) {
	d := darkKnight()
	d.Runtime = "N/A"
	d.IMDbRating = "N/A"

	e := FromDetail(d, 5)
	assert.Zero(t, e.RuntimeMinutes)
	assert.Zero(t, e.IMDbRating)
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]int{
		"152 min": 152,
		"90":      90,
		" 7 min":  7,
		"min":     0,
		"":        0,
		"1h 30m":  1,
	}
	for in, want := range cases {
		assert.Equal(t, want, leadingInt(in), "leadingInt(%q)", in)
	}
}

func TestAddThenRemoveRestoresList(t *testing.T) {
	s := NewStore()
	s.Add(Entry{ID: "tt1", Title: "One"})
	s.Add(Entry{ID: "tt2", Title: "Two"})
	before := s.Entries()

	s.Add(FromDetail(darkKnight(), 9))
	require.Equal(t, 3, s.Len())

	removed := s.Remove("tt0468569")
	assert.Equal(t, 1, removed)
	assert.Equal(t, before, s.Entries())
}

func TestAddDoesNotDeduplicate(t *testing.T) {
	s := NewStore()
	s.Add(Entry{ID: "tt1", UserRating: 3})
	s.Add(Entry{ID: "tt1", UserRating: 7})
	assert.Equal(t, 2, s.Len())

	got, ok := s.Find("tt1")
	require.True(t, ok)
	assert.Equal(t, 3, got.UserRating, "Find returns the first entry")

	assert.Equal(t, 2, s.Remove("tt1"))
	assert.Zero(t, s.Len())
}

func TestEntriesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(Entry{ID: "tt1", Title: "One"})

	list := s.Entries()
	list[0].Title = "changed"

	got, _ := s.Find("tt1")
	assert.Equal(t, "One", got.Title)
}

func TestSummary(t *testing.T) {
	s := NewStore()
	assert.Equal(t, Summary{}, s.Summary())

	s.Add(Entry{ID: "a", IMDbRating: 8, UserRating: 10, RuntimeMinutes: 120})
	s.Add(Entry{ID: "b", IMDbRating: 6, UserRating: 6, RuntimeMinutes: 90})

	sum := s.Summary()
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 7.0, sum.AvgIMDbRating, 1e-9)
	assert.InDelta(t, 8.0, sum.AvgUserRating, 1e-9)
	assert.InDelta(t, 105.0, sum.AvgRuntime, 1e-9)

	s.Remove("a")
	assert.InDelta(t, 90.0, s.Summary().AvgRuntime, 1e-9)
}
