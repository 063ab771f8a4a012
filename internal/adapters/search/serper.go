// Package search retrieves web context for the specialists through the
// Serper Google Search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// Defaults for the Serper client.
const (
	DefaultEndpoint   = "https://google.serper.dev/search"
	DefaultMaxResults = 3
	DefaultTimeout    = 10 * time.Second
)

// Config configures a Serper client.
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxResults int
	// Retries is the number of extra attempts after a retryable failure.
	Retries int
}

// Serper implements core.Retriever. Search never fails: any error yields "".
type Serper struct {
	cfg    Config
	client *http.Client
	retry  Backoff
	logger *logging.Logger
}

// Option configures a Serper client.
type Option func(*Serper)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Serper) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBackoff replaces the retry schedule.
func WithBackoff(b Backoff) Option {
	return func(s *Serper) {
		s.retry = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Serper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSerper creates a Serper client.
func NewSerper(cfg Config, opts ...Option) *Serper {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	s := &Serper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry:  DefaultBackoff(cfg.Retries + 1),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("serper")
	return s
}

type searchRequest struct {
	Q string `json:"q"`
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type searchResponse struct {
	Organic []OrganicResult `json:"organic"`
}

// Search implements core.Retriever.
func (s *Serper) Search(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if s.cfg.APIKey == "" {
		s.logger.Debug("serper: no api key, skipping search")
		return ""
	}

	var results []OrganicResult
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		results, err = s.fetch(ctx, query)
		return err
	}, func(attempt int, err error, wait time.Duration) {
		s.logger.Debug("serper: retrying", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		s.logger.Warn("serper: search failed", "query", query, "error", err)
		return ""
	}
	return Format(results, s.cfg.MaxResults)
}

func (s *Serper) fetch(ctx context.Context, query string) ([]OrganicResult, error) {
	body, err := json.Marshal(searchRequest{Q: query})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.ErrExecution("NETWORK", "serper request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := core.ErrExecution("HTTP_STATUS",
			fmt.Sprintf("serper returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
		err.Retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, err.WithDetail("status", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		decodeErr := core.ErrExecution("DECODE", "invalid serper response").WithCause(err)
		decodeErr.Retryable = false
		return nil, decodeErr
	}
	return out.Organic, nil
}

// Format renders the first limit results as " title\nsnippet\n link" blocks
// separated by blank lines.
func Format(results []OrganicResult, limit int) string {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf(" %s\n%s\n %s", r.Title, r.Snippet, r.Link))
	}
	return strings.Join(blocks, "\n\n")
}
