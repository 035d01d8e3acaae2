package retriever

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/resilience/circuitbreaker"
)

// Strategy is one way of obtaining the raw HTML of an article page.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, url string) (string, error)
}

const (
	// DesktopUserAgent is a current desktop Chrome.
	DesktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// SocialCrawlerUserAgent is the Facebook link-preview crawler.
	SocialCrawlerUserAgent = "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)"

	// DefaultTimeout bounds one strategy fetch attempt.
	DefaultTimeout = 30 * time.Second
)

// Public reader proxies that take the article URL appended to their prefix.
const (
	TwelveFtPrefix       = "https://12ft.io/"
	RemovePaywallsPrefix = "https://removepaywalls.com/"
)

func desktopHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", DesktopUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	return h
}

// HTTPStrategy fetches the page, optionally through a URL-prefix proxy and a
// circuit breaker.
type HTTPStrategy struct {
	name    string
	client  httpclient.Fetcher
	headers http.Header
	prefix  string
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

// NewDirectStrategy fetches with a desktop browser User-Agent.
func NewDirectStrategy(client httpclient.Fetcher) *HTTPStrategy {
	return &HTTPStrategy{name: "direct", client: client, headers: desktopHeaders(), timeout: DefaultTimeout}
}

// NewSearchReferrerStrategy fetches as if following a search engine result.
func NewSearchReferrerStrategy(client httpclient.Fetcher) *HTTPStrategy {
	h := desktopHeaders()
	h.Set("Referer", "https://www.google.com/")
	return &HTTPStrategy{name: "search-referrer", client: client, headers: h, timeout: DefaultTimeout}
}

// NewSocialCrawlerStrategy fetches as the social network link-preview crawler.
func NewSocialCrawlerStrategy(client httpclient.Fetcher) *HTTPStrategy {
	h := http.Header{}
	h.Set("User-Agent", SocialCrawlerUserAgent)
	h.Set("Referer", "https://www.facebook.com/")
	return &HTTPStrategy{name: "social-crawler", client: client, headers: h, timeout: DefaultTimeout}
}

// NewProxyStrategy fetches prefix+url through a breaker dedicated to the
// proxy host.
func NewProxyStrategy(client httpclient.Fetcher, prefix string) *HTTPStrategy {
	host := prefix
	if u, err := url.Parse(prefix); err == nil && u.Host != "" {
		host = u.Host
	}
	return &HTTPStrategy{
		name:    host,
		client:  client,
		headers: desktopHeaders(),
		prefix:  prefix,
		breaker: circuitbreaker.New(circuitbreaker.ProxyConfig(host)),
		timeout: DefaultTimeout,
	}
}

// Name implements Strategy.
func (s *HTTPStrategy) Name() string { return s.name }

// Breaker returns the strategy's circuit breaker, nil for unguarded strategies.
func (s *HTTPStrategy) Breaker() *circuitbreaker.CircuitBreaker { return s.breaker }

// Attempt implements Strategy. Non-2xx responses are errors.
func (s *HTTPStrategy) Attempt(ctx context.Context, articleURL string) (string, error) {
	if s.breaker == nil {
		return s.fetch(ctx, articleURL)
	}
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, articleURL)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (s *HTTPStrategy) fetch(ctx context.Context, articleURL string) (string, error) {
	resp, err := s.client.Fetch(ctx, s.prefix+articleURL, s.headers.Clone(), s.timeout)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.name, err)
	}
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", s.name, err)
	}
	return string(resp.Body), nil
}

// DefaultStrategies returns the lightweight chain in order: direct, search
// referrer, social crawler, then the two reader proxies.
func DefaultStrategies(client httpclient.Fetcher) []Strategy {
	return []Strategy{
		NewDirectStrategy(client),
		NewSearchReferrerStrategy(client),
		NewSocialCrawlerStrategy(client),
		NewProxyStrategy(client, TwelveFtPrefix),
		NewProxyStrategy(client, RemovePaywallsPrefix),
	}
}
