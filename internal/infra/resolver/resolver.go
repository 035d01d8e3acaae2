// Package resolver turns aggregator redirect links into the article URL they
// point at, so the canonical URL becomes the dedup and storage key.
package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"news-archiver/internal/infra/httpclient"
)

// DefaultTimeout bounds the redirect-following fetch.
const DefaultTimeout = 10 * time.Second

// DefaultHosts are aggregators known to wrap article links in redirects.
var DefaultHosts = []string{"news.google.com"}

// Resolver follows redirects for known aggregator hosts.
type Resolver struct {
	client  httpclient.Fetcher
	hosts   []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Resolver for the given hosts. Nil hosts means DefaultHosts.
func New(client httpclient.Fetcher, hosts []string) *Resolver {
	if hosts == nil {
		hosts = DefaultHosts
	}
	return &Resolver{
		client:  client,
		hosts:   hosts,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// NeedsResolution reports whether url belongs to a redirect-issuing aggregator.
func (r *Resolver) NeedsResolution(url string) bool {
	for _, h := range r.hosts {
		if strings.Contains(url, h) {
			return true
		}
	}
	return false
}

// Resolve returns the final URL for aggregator links and url unchanged
// otherwise. A failed resolution also returns url unchanged.
func (r *Resolver) Resolve(ctx context.Context, url string) string {
	if !r.NeedsResolution(url) {
		return url
	}

	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	resp, err := r.client.Fetch(ctx, url, h, r.timeout)
	if err != nil {
		r.logger.Debug("redirect resolution failed",
			slog.String("url", url),
			slog.Any("error", err))
		return url
	}
	if resp.FinalURL == "" {
		return url
	}

	if resp.FinalURL != url {
		r.logger.Debug("resolved redirect",
			slog.String("url", url),
			slog.String("final_url", resp.FinalURL))
	}
	return resp.FinalURL
}
