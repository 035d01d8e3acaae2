// Package httpclient wraps outbound HTTP GET requests with a timeout, redirect
// following, a body size cap, and the shared retry policy for rate limiting
// and transport failures.
//
// Only 429 responses and transport errors are retried. Every other status is
// handed back to the caller as a Response so the caller decides what a 404 or
// a 503 means for its unit of work.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news-archiver/internal/resilience/retry"
)

// Response is the outcome of a completed HTTP exchange.
type Response struct {
	StatusCode int
	// FinalURL is the URL after all redirects were followed.
	FinalURL string
	Header   http.Header
	Body     []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{URL: r.FinalURL, StatusCode: r.StatusCode}
}

// Fetcher is the contract consumed by the feed parser, enricher, resolver,
// retrieval strategies and the image cache.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header, timeout time.Duration) (*Response, error)
}

// Client implements Fetcher on top of net/http.
//
// Thread safety: Client is safe for concurrent use.
type Client struct {
	http   *http.Client
	config Config
	retry  retry.Config
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryConfig replaces the retry schedule (tests inject a no-op Wait).
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithTransport replaces the underlying RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// New creates a Client.
//
// Example:
//
//	client := httpclient.New(httpclient.DefaultConfig())
//	resp, err := client.Fetch(ctx, "https://example.com/feed.xml", nil, 30*time.Second)
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		config: cfg,
		retry:  retry.FetchConfig(),
	}

	c.http = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), c.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a GET on rawURL.
//
// A 429 response or a transport failure is retried on the FetchConfig
// schedule (3 attempts, 2s then 4s between them). When the budget runs out
// the error wraps ErrRateLimited or ErrUnreachable. Any other status,
// including 4xx and 5xx, returns a Response without retrying.
//
// A zero timeout uses Config.Timeout. The timeout applies per attempt.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers http.Header, timeout time.Duration) (*Response, error) {
	if err := validateURL(rawURL, c.config.DenyPrivateIPs); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = c.config.Timeout
	}

	cfg := c.retry
	cfg.ShouldRetry = func(err error) bool {
		var ae *attemptError
		return errors.As(err, &ae)
	}

	var resp *Response
	err := retry.WithBackoff(ctx, cfg, func() error {
		r, err := c.do(ctx, rawURL, headers, timeout)
		if err != nil {
			return err
		}
		if r.StatusCode == http.StatusTooManyRequests {
			return &attemptError{rateLimited: true}
		}
		resp = r
		return nil
	})
	if err == nil {
		return resp, nil
	}

	var ae *attemptError
	if errors.As(err, &ae) {
		if ae.rateLimited {
			slog.Debug("fetch gave up after rate limiting",
				slog.String("url", rawURL),
				slog.Int("attempts", cfg.MaxAttempts))
			return nil, fmt.Errorf("Fetch %s: %w", rawURL, ErrRateLimited)
		}
		return nil, fmt.Errorf("Fetch %s: %w: %v", rawURL, ErrUnreachable, ae.err)
	}
	return nil, fmt.Errorf("Fetch %s: %w", rawURL, err)
}

// do performs a single attempt. Transport failures come back as *attemptError
// so the retry loop repeats them; policy failures (redirect limits, blocked
// targets, oversized bodies, caller cancellation) do not.
func (c *Client) do(ctx context.Context, rawURL string, headers http.Header, timeout time.Duration) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && isPolicyError(urlErr.Err) {
			return nil, urlErr.Err
		}
		return nil, &attemptError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	limited := io.LimitReader(resp.Body, c.config.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &attemptError{err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > c.config.MaxBodySize {
		return nil, fmt.Errorf("%w: response exceeds limit %d bytes", ErrBodyTooLarge, c.config.MaxBodySize)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func isPolicyError(err error) bool {
	return errors.Is(err, ErrTooManyRedirects) ||
		errors.Is(err, ErrPrivateIP) ||
		errors.Is(err, ErrInvalidURL)
}
