// Package omdb is a thin client for the OMDb movie search and detail endpoints.
//
// The client does no caching and no retries. Every request takes a context;
// cancelling it produces an error whose Kind is KindCancelled, which callers
// treat as a silent outcome rather than a user-visible failure.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public OMDb endpoint.
	DefaultBaseURL = "http://www.omdbapi.com/"

	// DefaultAPIKey is the shared key the app ships with.
	DefaultAPIKey = "7c0d2be6"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 1 << 20
)

// UserAgent is sent with every request. Overridden at build time via ldflags.
var UserAgent = "popcorn/dev"

// Client issues search and detail requests against the OMDb API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests use httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIKey sets the apikey query parameter.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithLimiter replaces the client-side rate limiter. nil disables limiting.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a Client with the default endpoint, key and a 10 req/s limiter.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  DefaultAPIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search looks up movies whose title matches query.
func (c *Client) Search(ctx context.Context, query string) (SearchPage, error) {
	params := url.Values{}
	params.Set("s", query)

	var env searchEnvelope
	if err := c.get(ctx, params, &env); err != nil {
		return SearchPage{}, err
	}
	if env.Response == "False" {
		return SearchPage{}, notFoundError(env.Error)
	}

	items := make([]SearchResult, 0, len(env.Search))
	for _, rec := range env.Search {
		items = append(items, SearchResult{
			ID:        rec.IMDbID,
			Title:     rec.Title,
			Year:      rec.Year,
			PosterURL: rec.Poster,
		})
	}

	total, err := strconv.Atoi(strings.TrimSpace(env.TotalResults))
	if err != nil {
		total = len(items)
	}

	return SearchPage{Items: items, Total: total}, nil
}

// Detail fetches the full record for one IMDb id.
func (c *Client) Detail(ctx context.Context, id string) (MovieDetail, error) {
	params := url.Values{}
	params.Set("i", id)

	var rec detailRecord
	if err := c.get(ctx, params, &rec); err != nil {
		return MovieDetail{}, err
	}
	if rec.Response == "False" {
		return MovieDetail{}, notFoundError(rec.Error)
	}

	return MovieDetail{
		ID:         rec.IMDbID,
		Title:      rec.Title,
		Year:       rec.Year,
		PosterURL:  rec.Poster,
		Plot:       rec.Plot,
		Runtime:    rec.Runtime,
		Actors:     rec.Actors,
		Genre:      rec.Genre,
		Director:   rec.Director,
		Released:   rec.Released,
		IMDbRating: rec.IMDbRating,
	}, nil
}

// get performs one GET with the api key and params, decoding the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if ctx.Err() != nil {
		return cancelledError(ctx.Err())
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return cancelledError(ctx.Err())
			}
			return transportError(0, fmt.Errorf("rate limiter: %w", err))
		}
	}

	params.Set("apikey", c.apiKey)
	fullURL := c.baseURL
	if strings.Contains(fullURL, "?") {
		fullURL += "&" + params.Encode()
	} else {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return transportError(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return cancelledError(ctx.Err())
		}
		return transportError(0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transportError(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return cancelledError(ctx.Err())
		}
		return transportError(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return transportError(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
