// Package enricher scrapes Open Graph and meta tags from an article page to
// fill fields the feed left empty.
package enricher

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/observability/metrics"

	"github.com/araddon/dateparse"
)

const (
	// MaxScanChars bounds how much of the page is scanned. Meta tags live in
	// <head>, so the rest of the document is never needed.
	MaxScanChars = 50000

	// DefaultTimeout bounds the page fetch.
	DefaultTimeout = 15 * time.Second
)

// Metadata holds whatever the page declared. Zero fields were not found.
type Metadata struct {
	Image       string
	Description string
	Title       string
	Author      string
	PublishedAt *time.Time
}

// IsEmpty reports whether no metadata was found.
func (m Metadata) IsEmpty() bool {
	return m.Image == "" && m.Description == "" && m.Title == "" && m.Author == "" && m.PublishedAt == nil
}

// Enricher fetches pages and extracts Metadata.
type Enricher struct {
	client  httpclient.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Enricher that fetches through client.
func New(client httpclient.Fetcher) *Enricher {
	return &Enricher{
		client:  client,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// Enrich fetches url and extracts its metadata. Failures yield empty
// Metadata; this method never returns an error.
func (e *Enricher) Enrich(ctx context.Context, url string) Metadata {
	resp, err := e.client.Fetch(ctx, url, nil, e.timeout)
	if err != nil {
		e.logger.Debug("enrichment fetch failed",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordEnrichment(false)
		return Metadata{}
	}
	if !resp.OK() {
		e.logger.Debug("enrichment fetch returned error status",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode))
		metrics.RecordEnrichment(false)
		return Metadata{}
	}

	md := Extract(string(resp.Body))
	metrics.RecordEnrichment(!md.IsEmpty())
	return md
}

// Extract scans the head of an HTML document for metadata tags.
func Extract(page string) Metadata {
	page = head(page, MaxScanChars)

	md := Metadata{
		Image:       metaContent(page, "og:image"),
		Description: metaContent(page, "og:description"),
		Title:       metaContent(page, "og:title"),
		Author:      metaContent(page, "article:author"),
	}
	if md.Description == "" {
		md.Description = metaContent(page, "description")
	}
	if md.Author == "" {
		md.Author = metaContent(page, "author")
	}
	if raw := metaContent(page, "article:published_time"); raw != "" {
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			u := t.UTC()
			md.PublishedAt = &u
		}
	}
	return md
}

// quotedValue captures a double-quoted value in group 1 or a single-quoted
// one in group 2.
const quotedValue = `(?:"([^"]*)"|'([^']*)')`

// patternCache holds the two attribute-order variants per key.
var patternCache = map[string][2]*regexp.Regexp{}

func init() {
	for _, key := range []string{"og:image", "og:description", "og:title", "article:author", "description", "author", "article:published_time"} {
		k := regexp.QuoteMeta(key)
		patternCache[key] = [2]*regexp.Regexp{
			regexp.MustCompile(`(?is)<meta\s[^>]*?(?:property|name)\s*=\s*["']` + k + `["'][^>]*?\scontent\s*=\s*` + quotedValue),
			regexp.MustCompile(`(?is)<meta\s[^>]*?content\s*=\s*` + quotedValue + `[^>]*?\s(?:property|name)\s*=\s*["']` + k + `["']`),
		}
	}
}

// metaContent finds <meta property|name=key content=...> in either
// attribute order.
func metaContent(page, key string) string {
	for _, re := range patternCache[key] {
		if m := re.FindStringSubmatch(page); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if v := strings.TrimSpace(html.UnescapeString(raw)); v != "" {
				return v
			}
		}
	}
	return ""
}

// head returns at most n runes of s.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
