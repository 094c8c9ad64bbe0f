package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the persistent application configuration.
type Config struct {
	API    APIConfig    `json:"api"`
	Search SearchConfig `json:"search"`
	UI     UIConfig     `json:"ui"`
}

// APIConfig points at the movie catalog.
type APIConfig struct {
	BaseURL          string  `json:"base_url"`
	APIKey           string  `json:"api_key,omitempty"`
	RequestTimeoutMs int     `json:"request_timeout_ms"`
	RateLimit        float64 `json:"rate_limit"` // requests per second, 0 disables
	RateBurst        int     `json:"rate_burst"`
}

// SearchConfig tunes the query lifeline.
type SearchConfig struct {
	MinQueryLength int  `json:"min_query_length"`
	DebounceMs     int  `json:"debounce_ms"`
	DebounceFetch  bool `json:"debounce_fetch"` // fetch on debounce delivery instead of every keystroke
}

// UIConfig holds UI preferences.
type UIConfig struct {
	BaselineTitle string `json:"baseline_title"`
	ShowPosters   bool   `json:"show_posters"`
	DebugOverlay  bool   `json:"debug_overlay"` // start with the event overlay open
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "http://www.omdbapi.com/",
			APIKey:           "7c0d2be6",
			RequestTimeoutMs: 15000,
			RateLimit:        10,
			RateBurst:        5,
		},
		Search: SearchConfig{
			MinQueryLength: 2,
			DebounceMs:     500,
			DebounceFetch:  false,
		},
		UI: UIConfig{
			BaselineTitle: "popcorn",
			ShowPosters:   false,
		},
	}
}

// Dir returns ~/.popcorn.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".popcorn")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads config from ConfigPath, or returns defaults. Environment
// overrides are applied either way.
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads config from path. A missing file yields defaults; a
// malformed one is an error so a typo never silently resets settings.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // holds the API key
}

// ApplyEnv overrides fields from OMDB_API_KEY, OMDB_BASE_URL and
// POPCORN_DEBOUNCE_FETCH.
func (c *Config) ApplyEnv() {
	if key := os.Getenv("OMDB_API_KEY"); key != "" {
		c.API.APIKey = key
	}
	if base := os.Getenv("OMDB_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if v := os.Getenv("POPCORN_DEBOUNCE_FETCH"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Search.DebounceFetch = b
		}
	}
}

// normalize replaces zero or negative values left by a partial file.
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.RequestTimeoutMs <= 0 {
		c.API.RequestTimeoutMs = d.API.RequestTimeoutMs
	}
	if c.API.RateBurst <= 0 {
		c.API.RateBurst = d.API.RateBurst
	}
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = d.Search.MinQueryLength
	}
	if c.Search.DebounceMs <= 0 {
		c.Search.DebounceMs = d.Search.DebounceMs
	}
	if c.UI.BaselineTitle == "" {
		c.UI.BaselineTitle = d.UI.BaselineTitle
	}
}

// RequestTimeout is API.RequestTimeoutMs as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutMs) * time.Millisecond
}

// Debounce is Search.DebounceMs as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Search.DebounceMs) * time.Millisecond
}
