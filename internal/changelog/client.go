package changelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"github.com/amai-lab/linkgraph/internal/config"
)

// HTTPError is a non-2xx response from the changelog endpoint
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Client wraps the LinkedIn Member Changelog API with rate limiting
// and bounded retries
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	version     string
	rateLimiter *rate.Limiter
}

// NewClient creates a changelog client for the given access token
func NewClient(token string, cfg config.LinkedInConfig) *Client {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 2
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.linkedin.com/rest"
	}
	version := cfg.Version
	if version == "" {
		version = "202312"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		token:       token,
		version:     version,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// FetchPage retrieves one page of changelog elements.
// startTime of 0 omits the server-side time filter.
func (c *Client) FetchPage(ctx context.Context, start, count int, startTime int64) (*Page, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.pageURL(start, count, startTime)

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return c.get(ctx, reqURL)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxJitter(250*time.Millisecond),
		retry.RetryIf(isRetryableError),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch changelog page start=%d: %w", start, err)
	}

	// UseNumber keeps LinkedIn's 19-digit activity ids exact; float64
	// would silently round them.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var page Page
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode changelog page start=%d: %w", start, err)
	}

	return &page, nil
}

func (c *Client) pageURL(start, count int, startTime int64) string {
	q := url.Values{}
	q.Set("q", "memberAndApplication")
	q.Set("start", strconv.Itoa(start))
	q.Set("count", strconv.Itoa(count))
	if startTime > 0 {
		q.Set("startTime", strconv.FormatInt(startTime, 10))
	}
	return fmt.Sprintf("%s/memberChangeLogs?%s", c.baseURL, q.Encode())
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("LinkedIn-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	return io.ReadAll(resp.Body)
}

// isRetryableError returns true for transient errors that should be retried
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // other 4xx errors are permanent
		}
	}
	// Network errors, timeouts, etc. are retryable
	return true
}
