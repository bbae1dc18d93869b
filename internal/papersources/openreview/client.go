// Package openreview fetches accepted papers from the OpenReview API v2.
package openreview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

const (
	// DefaultBaseURL is the API v2 host.
	DefaultBaseURL = "https://api2.openreview.net"

	// DefaultSiteURL prefixes forum and PDF links.
	DefaultSiteURL = "https://openreview.net"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultPageSize is the default notes per page.
	DefaultPageSize = 1000

	// DefaultMaxPages caps the pages walked in one run.
	DefaultMaxPages = 5

	// DefaultPageDelay is the pause between consecutive page requests.
	DefaultPageDelay = time.Second

	sourceName = "openreview"
)

// Config holds configuration for the OpenReview client.
type Config struct {
	BaseURL        string
	SiteURL        string
	Timeout        time.Duration
	PageSize       int
	MaxPages       int
	PageDelay      time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration

	// IncludeReplies requests details=replies with every page.
	IncludeReplies bool

	// Username and Password enable an authenticated session when both are set.
	Username string
	Password string
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.SiteURL == "" {
		c.SiteURL = DefaultSiteURL
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
}

// Client talks to the notes endpoint. One client is shared by every venue
// fetcher so page pacing holds across venues.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient

	mu    sync.Mutex
	token string
}

// New creates a new OpenReview client.
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

// NewWithHTTPClient creates a new OpenReview client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Page is one page of notes plus its raw body.
type Page struct {
	Notes []json.RawMessage
	Raw   []byte
}

// ListNotes requests notes of venueID newest-first.
func (c *Client) ListNotes(ctx context.Context, venueID string, offset int) (*Page, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL, err := c.buildNotesURL(venueID, offset)
	if err != nil {
		return nil, fmt.Errorf("building notes URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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

	var body NotesResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &Page{Notes: body.Notes, Raw: raw}, nil
}

// ensureToken logs in once when credentials are configured.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if c.config.Username == "" || c.config.Password == "" {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(LoginRequest{ID: c.config.Username, Password: c.config.Password})
	if err != nil {
		return "", fmt.Errorf("encoding login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.config.BaseURL, "/")+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", papersources.StatusError(sourceName, resp)
	}

	var login LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	c.token = login.Token
	return c.token, nil
}

// buildNotesURL constructs the notes query URL.
func (c *Client) buildNotesURL(venueID string, offset int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/notes"

	query := url.Values{}
	query.Set("content.venueid", venueID)
	query.Set("sort", "pdate:desc")
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	query.Set("offset", strconv.Itoa(offset))
	if c.config.IncludeReplies {
		query.Set("details", "replies")
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}
