package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/siteext-labs/siteext/internal/branding"
)

// ErrCatalogUnavailable is returned when the feed cannot be reached or
// answers with an unexpected status.
var ErrCatalogUnavailable = errors.New("extension catalog unavailable")

// ErrInvalidPackage is returned when a downloaded archive does not match
// the package that was requested.
var ErrInvalidPackage = errors.New("invalid package archive")

// errNotFound marks a 404 inside the client; callers see (nil, nil).
var errNotFound = errors.New("not found")

const (
	defaultPageSize      = 100
	defaultMaxResults    = 1000
	defaultRetryAttempts = 3
	defaultRetryInterval = 500 * time.Millisecond
)

// Client talks to one feed.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        zerolog.Logger
	apiKey        string
	userAgent     string
	pageSize      int
	maxResults    int
	retryAttempts int
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithAPIKey sends key in the X-NuGet-ApiKey header of every request.
func WithAPIKey(key string) Option {
	return func(cl *Client) {
		cl.apiKey = key
	}
}

// WithPageSize sets how many entries are requested per search page.
func WithPageSize(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

// WithMaxResults caps the number of search entries read across pages.
func WithMaxResults(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxResults = n
		}
	}
}

// WithRetry sets how many times a failed GET is retried and the initial
// backoff interval.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(cl *Client) {
		if attempts >= 0 {
			cl.retryAttempts = attempts
		}
		if interval > 0 {
			cl.retryInterval = interval
		}
	}
}

// New creates a Client for the feed rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    http.DefaultClient,
		logger:        zerolog.Nop(),
		userAgent:     branding.UserAgent(),
		pageSize:      defaultPageSize,
		maxResults:    defaultMaxResults,
		retryAttempts: defaultRetryAttempts,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the feed root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// packageURL joins escaped path segments onto the feed root.
func (c *Client) packageURL(segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, c.baseURL, "package")
	for _, s := range segments {
		parts = append(parts, url.PathEscape(strings.ToLower(s)))
	}
	return strings.Join(parts, "/")
}

// response is a successful GET.
type response struct {
	body   []byte
	header http.Header
}

// get fetches rawURL, retrying transport errors and 5xx statuses with
// exponential backoff. A 404 returns errNotFound.
func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	var out *response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.apiKey != "" {
			req.Header.Set("X-NuGet-ApiKey", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetching %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(errNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return backoff.Permanent(fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rawURL, err)
		}
		out = &response{body: body, header: resp.Header}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retryAttempts)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Debug().Str("op", "get").Str("url", rawURL).Dur("wait", wait).Err(err).Msg("retrying feed request")
	})
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, errNotFound):
		return nil, errNotFound
	default:
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
}
