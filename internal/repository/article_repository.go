package repository

import (
	"context"
	"time"

	"news-archiver/internal/domain/entity"
)

// ArticleFilter narrows listings. Zero values mean "no constraint".
type ArticleFilter struct {
	Category   string
	SourceSlug string
	Since      *time.Time // Optional: effective date >= Since
	Limit      int
	Offset     int
}

// SearchFilter narrows full-text search results.
type SearchFilter struct {
	Category   string
	SourceSlug string
	Limit      int
}

// SourceCount is the number of stored articles per source.
type SourceCount struct {
	SourceSlug string
	SourceName string
	Category   string
	Count      int64
	Latest     *time.Time
}

// CategoryCount is the number of stored articles per category.
type CategoryCount struct {
	Category string
	Count    int64
}

// Stats summarizes the archive.
type Stats struct {
	TotalArticles int64
	TotalSources  int64
	NewestArticle *time.Time
}

type ArticleRepository interface {
	// InsertIfAbsent stores the article unless its URL already exists.
	// It reports whether a row was created; concurrent callers racing on the same URL
	// see exactly one true.
	InsertIfAbsent(ctx context.Context, article *entity.Article) (bool, error)
	// Get returns (nil, nil) when no article has the given id.
	Get(ctx context.Context, id int64) (*entity.Article, error)
	// GetByURL returns (nil, nil) when the URL has never been stored.
	GetByURL(ctx context.Context, url string) (*entity.Article, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// List returns articles ordered by effective date, newest first.
	List(ctx context.Context, filter ArticleFilter) ([]*entity.Article, error)
	Count(ctx context.Context, filter ArticleFilter) (int64, error)
	// Search runs a full-text query over headline, byline, description, body and tags.
	// Results are ordered by relevance.
	Search(ctx context.Context, query string, filter SearchFilter) ([]*entity.Article, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
	Stats(ctx context.Context) (*Stats, error)
}
