// Package arxiv fetches new preprints from the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "http://export.arxiv.org/api"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default number of entries per page.
	DefaultPageSize = 100

	// DefaultMaxPages caps the pages walked in one run.
	DefaultMaxPages = 5

	// DefaultPageDelay is the pause between consecutive page requests.
	DefaultPageDelay = 3 * time.Second

	// DefaultTargetFetchSize is the number of entries kept when no checkpoint exists.
	DefaultTargetFetchSize = 50

	// DefaultJobName is the checkpoint key of the arXiv job.
	DefaultJobName = "arxiv_stack_pointer_fetcher"

	sourceName = "arxiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// JobName is the checkpoint key.
	JobName string

	// Categories are OR-ed into the search query.
	Categories []string

	// Timeout is the request timeout.
	Timeout time.Duration

	// PageSize is the max_results of each page request.
	PageSize int

	// MaxPages bounds the pages walked in one run.
	MaxPages int

	// PageDelay spaces consecutive requests, retries included.
	PageDelay time.Duration

	// MaxAttempts bounds attempts per page.
	MaxAttempts int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// TargetFetchSize is the number of newest entries kept on a first run.
	TargetFetchSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.JobName == "" {
		c.JobName = DefaultJobName
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PageDelay == 0 {
		c.PageDelay = DefaultPageDelay
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.TargetFetchSize == 0 {
		c.TargetFetchSize = DefaultTargetFetchSize
	}
}

// Client talks to the arXiv query endpoint.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new arXiv client with the given configuration.
// Requests are spaced PageDelay apart and retried with exponential backoff.
func New(cfg Config, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      sourceName,
		Timeout:     cfg.Timeout,
		MinInterval: cfg.PageDelay,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryBaseDelay,
		Metrics:     metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Page is one decoded page plus its raw body.
type Page struct {
	Feed Feed
	Raw  []byte
}

// FetchPage requests one page of the newest submissions starting at offset start.
func (c *Client) FetchPage(ctx context.Context, start int) (*Page, error) {
	pageURL, err := c.buildQueryURL(start)
	if err != nil {
		return nil, fmt.Errorf("building query URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, papersources.StatusError(sourceName, resp)
	}

	raw, err := papersources.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	page := &Page{Raw: raw}
	if err := xml.Unmarshal(raw, &page.Feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return page, nil
}

// SearchQuery builds the category disjunction, e.g. "cat:cs.LG OR cat:cs.AI".
func SearchQuery(categories []string) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, "cat:"+c)
		}
	}
	return strings.Join(parts, " OR ")
}

// buildQueryURL constructs the arXiv query API URL.
func (c *Client) buildQueryURL(start int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}
	query.Set("search_query", SearchQuery(c.config.Categories))
	query.Set("start", strconv.Itoa(start))
	query.Set("max_results", strconv.Itoa(c.config.PageSize))

	// Newest submissions first
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" -> "2301.12345"
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(strings.TrimSpace(entryURL))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// errorKind labels a page failure for logs.
func errorKind(err error) string {
	var rl *domain.RateLimitError
	var api *domain.ExternalAPIError
	switch {
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &api):
		return "upstream"
	default:
		return "decode"
	}
}
