// Package retrieval is the HTTP adapter for the solution-search collaborator.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joelkehle/discovery-assessment/internal/collab"
)

const (
	SearchPath                = "/v1/solutions/search"
	DefaultMaxResults         = 5
	DefaultRateLimitPerMinute = 60
	DefaultRequestTimeout     = 15 * time.Second
	maxAttempts               = 3
)

type Config struct {
	BaseURL            string
	APIKey             string
	MaxResults         int
	RateLimitPerMinute int
	HTTPClient         *http.Client
}

// Client implements collab.Retriever against a JSON search endpoint. Requests
// are paced by a ticker so bursts never exceed the configured rate.
type Client struct {
	cfg     Config
	ticker  *time.Ticker
	limiter <-chan time.Time
	sleep   func(context.Context, time.Duration) error
}

var _ collab.Retriever = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("SEARCH_BASE_URL not configured")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	ticker := time.NewTicker(time.Minute / time.Duration(cfg.RateLimitPerMinute))
	return &Client{cfg: cfg, ticker: ticker, limiter: ticker.C, sleep: sleepCtx}, nil
}

func (c *Client) Close() {
	c.ticker.Stop()
}

type searchRequest struct {
	Query    string  `json:"query"`
	Category string  `json:"category,omitempty"`
	Budget   float64 `json:"budget,omitempty"`
	Limit    int     `json:"limit"`
}

type searchResponse struct {
	Results []collab.Solution `json:"results"`
}

// Search returns at most the requested number of solutions ordered by
// relevance. An empty list is not an error.
func (c *Client) Search(ctx context.Context, query string, filters collab.Filters) ([]collab.Solution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("retrieval: empty query")
	}
	limit := filters.Limit
	if limit <= 0 || limit > c.cfg.MaxResults {
		limit = c.cfg.MaxResults
	}
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	body := searchRequest{Query: query, Category: filters.Category, Budget: filters.Budget, Limit: limit}
	resp, attempts, err := c.executeWithRetry(ctx, body)
	if err != nil {
		slog.Warn("search_failed", "component", "retrieval", "attempts", attempts, "err", err)
		return nil, err
	}
	out := normalize(resp.Results, limit)
	slog.Info("search_complete", "component", "retrieval", "attempts", attempts, "raw", len(resp.Results), "returned", len(out))
	return out, nil
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter:
		return nil
	}
}

// statusError carries the HTTP status of a failed attempt.
type statusError struct {
	Code       int
	RetryAfter time.Duration
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status code: %d", e.Code)
	}
	return fmt.Sprintf("status code: %d body=%s", e.Code, e.Body)
}

func (c *Client) executeWithRetry(ctx context.Context, body searchRequest) (searchResponse, int, error) {
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.executeOnce(ctx, body)
		if err == nil {
			return resp, attempt, nil
		}
		last = err
		if ctx.Err() != nil || attempt == maxAttempts {
			return searchResponse{}, attempt, err
		}
		var se *statusError
		if !errors.As(err, &se) {
			// Network failures are retried like server errors.
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return searchResponse{}, attempt, err
			}
			continue
		}
		switch {
		case se.Code == http.StatusTooManyRequests:
			wait := se.RetryAfter
			if wait <= 0 {
				wait = backoffDelay(attempt)
			}
			if err := c.sleep(ctx, wait); err != nil {
				return searchResponse{}, attempt, err
			}
		case se.Code >= 500:
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return searchResponse{}, attempt, err
			}
		default:
			return searchResponse{}, attempt, err
		}
	}
	return searchResponse{}, maxAttempts, last
}

func (c *Client) executeOnce(ctx context.Context, body searchRequest) (searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return searchResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+SearchPath, bytes.NewReader(payload))
	if err != nil {
		return searchResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return searchResponse{}, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))

	if res.StatusCode >= 400 {
		se := &statusError{Code: res.StatusCode, RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
		if res.StatusCode != http.StatusTooManyRequests {
			se.Body = truncate(string(b), 200)
		}
		return searchResponse{}, se
	}
	var parsed searchResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return searchResponse{}, fmt.Errorf("decode search response: %w", err)
	}
	return parsed, nil
}

// normalize drops unnamed entries, dedups by name, clamps scores to [0,1],
// orders by score then name, and caps the list.
func normalize(in []collab.Solution, limit int) []collab.Solution {
	seen := map[string]bool{}
	out := make([]collab.Solution, 0, len(in))
	for _, s := range in {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		s.RelevanceScore = min(1, max(0, s.RelevanceScore))
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 500 * time.Millisecond
	case 2:
		return time.Second
	default:
		return 2 * time.Second
	}
}
