package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
)

const (
	maxBodyBytes        = 10 << 20
	maxErrorBodyBytes   = 1 << 20
	defaultUserAgent    = "Helixir-PaperFeed/1.0"
	defaultClientSource = "unknown"
)

// HTTPClientConfig configures an HTTPClient. Zero values take defaults.
type HTTPClientConfig struct {
	// Source labels errors and metrics, e.g. "arxiv".
	Source  string
	Timeout time.Duration

	// RateLimit and BurstSize define a token bucket. MinInterval, when set,
	// replaces it with strict spacing: the first request goes immediately
	// and every later one, retries included, waits MinInterval.
	RateLimit   float64
	BurstSize   int
	MinInterval time.Duration

	// MaxAttempts counts the first try. RetryDelay doubles per attempt
	// unless the upstream sends Retry-After.
	MaxAttempts int
	RetryDelay  time.Duration

	// DisableRetries hands the first response back whatever its status,
	// for callers that run their own retry policy.
	DisableRetries bool

	UserAgent    string
	APIKey       string
	APIKeyHeader string

	Metrics *observability.Metrics
}

func (cfg *HTTPClientConfig) applyDefaults() {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Source == "" {
		cfg.Source = defaultClientSource
	}
}

// HTTPClient is an http.Client with client-side pacing and retries on
// transport errors, 429 and 5xx. Safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	config  HTTPClientConfig
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg.applyDefaults()

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize)
	if cfg.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		config:  cfg,
	}
}

// Do sends req, retrying as configured. A retried request is rewound via
// req.GetBody. Once attempts run out the error wraps a
// *domain.RateLimitError (429) or a *domain.ExternalAPIError (5xx or
// transport failure). Any other status is returned to the caller.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	attempts := c.config.MaxAttempts
	if c.config.DisableRetries {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := rewind(req); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
		resp, delay, err := c.try(req, attempt)
		switch {
		case err == nil:
			return resp, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt+1 < attempts {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

// try performs one round trip. A nil error means resp belongs to the
// caller; otherwise delay is how long to back off before the next attempt.
func (c *HTTPClient) try(req *http.Request, attempt int) (*http.Response, time.Duration, error) {
	src, endpoint := c.config.Source, req.URL.Path

	start := time.Now()
	resp, err := c.client.Do(req)
	c.config.Metrics.RecordSourceRequest(src, endpoint, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, err
		}
		c.config.Metrics.RecordSourceRequestFailed(src, endpoint, "transport")
		return nil, c.backoff(attempt), domain.NewExternalAPIError(src, 0, "request failed", err)
	}

	if c.config.DisableRetries || !shouldRetry(resp.StatusCode) {
		return resp, 0, nil
	}

	delay := c.getRetryDelay(resp, attempt)
	drain(resp)
	if resp.StatusCode == http.StatusTooManyRequests {
		c.config.Metrics.RecordSourceRateLimited(src)
		return nil, delay, domain.NewRateLimitError(src, delay)
	}
	c.config.Metrics.RecordSourceRequestFailed(src, endpoint, "http_"+strconv.Itoa(resp.StatusCode))
	return nil, delay, domain.NewExternalAPIError(src, resp.StatusCode, "server error", nil)
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

func (c *HTTPClient) backoff(attempt int) time.Duration {
	return c.config.RetryDelay << uint(attempt)
}

// getRetryDelay honours Retry-After as seconds or an HTTP date, falling
// back to exponential backoff when the header is absent or useless.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	h := resp.Header.Get("Retry-After")
	if secs, err := strconv.ParseInt(h, 10, 64); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return c.backoff(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("cannot retry request: rewind body: %w", err)
	}
	req.Body = body
	return nil
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ErrBodyTooLarge is returned by ReadBody for a body over 10MB.
var ErrBodyTooLarge = errors.New("response body exceeds 10MB")

// ReadBody reads a whole response body. A body over 10MB is an error rather
// than a truncated payload.
func ReadBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// StatusError turns a non-2xx response into a *domain.ExternalAPIError whose
// message is the first 1MB of the body.
func StatusError(source string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return domain.NewExternalAPIError(source, resp.StatusCode, string(body), nil)
}
