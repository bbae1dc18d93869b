package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

const (
	// DefaultBaseURL is the Semantic Scholar Graph API root.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the per-request timeout when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	sourceName = "semantic_scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as the x-api-key header when set. Unauthenticated
	// callers get a much lower shared rate limit.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration
}

// Client looks up authors. It makes exactly one request per call; a 429
// surfaces as *domain.RateLimitError and backoff is left to the caller.
type Client struct {
	client *papersources.HTTPClient
	search string
}

// NewClient builds a client. httpClient may be nil, in which case one is
// created with retries disabled and a loose burst guard, since pacing
// belongs to the reputation scorer.
func NewClient(cfg Config, httpClient *papersources.HTTPClient, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:         sourceName,
			Timeout:        cfg.Timeout,
			RateLimit:      100,
			BurstSize:      100,
			DisableRetries: true,
			APIKey:         cfg.APIKey,
			APIKeyHeader:   "x-api-key",
			Metrics:        metrics,
		})
	}
	return &Client{
		client: httpClient,
		search: strings.TrimRight(cfg.BaseURL, "/") + "/author/search",
	}
}

// SearchAuthor returns the best match for name with its paper venues, or
// nil when the search is empty.
func (c *Client) SearchAuthor(ctx context.Context, name string) (*AuthorResult, error) {
	q := url.Values{
		"query":  {name},
		"fields": {"papers.venue"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.search+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("author search %q: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, domain.NewRateLimitError(sourceName, retryAfter(resp.Header))
	default:
		return nil, papersources.StatusError(sourceName, resp)
	}

	body, err := papersources.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var out AuthorSearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
