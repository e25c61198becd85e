// Package search is a client for a Tavily-style web search API, used to
// look up reviews and price comparisons for a business under analysis.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dtoro641/confiable/internal/logging"
)

const defaultBaseURL = "https://api.tavily.com"

// ErrNotConfigured is returned without any network activity when the client
// has no usable API key.
var ErrNotConfigured = errors.New("search: api key not configured")

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is a full search answer.
type Response struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Options tunes a single search.
type Options struct {
	// Depth is "basic" or "advanced".
	Depth         string
	MaxResults    int
	IncludeAnswer bool
}

// Searcher is the search contract agents depend on.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
	Configured() bool
}

// Config controls the client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements Searcher against the HTTP API.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger logging.Logger
}

var _ Searcher = (*Client)(nil)

// NewClient constructs a Client. Zero config fields fall back to defaults.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(logging.Field{Key: "component", Value: "search"}),
	}
}

// Configured reports whether a usable API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && !strings.HasPrefix(c.cfg.APIKey, "your_")
}

type apiRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
}

// Search runs one query and returns the hits.
func (c *Client) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if opts.Depth == "" {
		opts.Depth = "basic"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}

	body, err := json.Marshal(apiRequest{
		APIKey:        c.cfg.APIKey,
		Query:         query,
		SearchDepth:   opts.Depth,
		MaxResults:    opts.MaxResults,
		IncludeAnswer: opts.IncludeAnswer,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("search request",
		logging.Field{Key: "query", Value: query},
		logging.Field{Key: "depth", Value: opts.Depth})

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		c.logger.Warn("search request failed", logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("search api error",
			logging.Field{Key: "status", Value: resp.StatusCode})
		return nil, fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
