// Package ingest coordinates a polling pass: it collects feed candidates per
// source, drops duplicates, fills missing metadata, optionally retrieves full
// text and archives whatever the store has not seen yet.
package ingest

import (
	"context"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/infra/enricher"
)

// FeedParser turns one feed URL into candidates. Failures yield an empty slice.
type FeedParser interface {
	Parse(ctx context.Context, feedURL string) []entity.Candidate
}

// Enricher scrapes page metadata for a candidate URL.
type Enricher interface {
	Enrich(ctx context.Context, url string) enricher.Metadata
}

// Retriever obtains the sanitized full-text body of an article.
type Retriever interface {
	Retrieve(ctx context.Context, url string, preferHeavy bool) (string, bool)
}

// Resolver maps aggregator redirect links to the publisher URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) string
}

// ImageCache stores a preview image locally and returns its relative path,
// or an empty string when the image could not be cached.
type ImageCache interface {
	Store(ctx context.Context, slug, imageURL string) string
}

// ArticleNotifier announces newly archived articles. Implementations must not block.
type ArticleNotifier interface {
	NotifyNewArticle(ctx context.Context, article *entity.Article) error
}
