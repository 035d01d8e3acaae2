// Package feed fetches syndication feeds (RSS and Atom) and normalizes their
// entries into article candidates.
package feed

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/observability/metrics"

	"github.com/mmcdole/gofeed"
)

// DefaultTimeout bounds a single feed fetch attempt.
const DefaultTimeout = 30 * time.Second

// Parser fetches and normalizes feeds.
type Parser struct {
	client  httpclient.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewParser creates a Parser that fetches through client.
func NewParser(client httpclient.Fetcher) *Parser {
	return &Parser{
		client:  client,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// Parse fetches feedURL and returns its candidates in document order.
// Fetch and parse failures are logged and yield an empty slice.
func (p *Parser) Parse(ctx context.Context, feedURL string) []entity.Candidate {
	resp, err := p.client.Fetch(ctx, feedURL, nil, p.timeout)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		metrics.RecordFeedFetch("fetch_error")
		p.logger.Warn("feed fetch failed",
			slog.String("feed", feedURL),
			slog.Bool("transient", httpclient.IsTransient(err)),
			slog.Any("error", err))
		return []entity.Candidate{}
	}

	candidates, err := ParseBytes(resp.Body)
	if err != nil {
		metrics.RecordFeedFetch("parse_error")
		p.logger.Warn("feed parse failed",
			slog.String("feed", feedURL),
			slog.Any("error", err))
		return []entity.Candidate{}
	}

	metrics.RecordFeedFetch("ok")
	p.logger.Debug("feed parsed",
		slog.String("feed", feedURL),
		slog.Int("candidates", len(candidates)))
	return candidates
}

// ParseBytes parses a feed document and normalizes every entry with a link.
func ParseBytes(body []byte) ([]entity.Candidate, error) {
	f, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]entity.Candidate, 0, len(f.Items))
	for _, it := range f.Items {
		if it == nil {
			continue
		}
		if c, ok := Normalize(fromItem(it)); ok {
			out = append(out, c)
		}
	}
	return out, nil
}
