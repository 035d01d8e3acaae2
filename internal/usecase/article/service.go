// Package article holds the read side of the archive: paged listings,
// lookups, full-text search and aggregate counts.
package article

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"news-archiver/internal/common/pagination"
	"news-archiver/internal/domain/entity"
	"news-archiver/internal/observability/metrics"
	"news-archiver/internal/repository"
)

// MaxQueryLength bounds the length of a search query in characters.
const MaxQueryLength = 200

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrInvalidArticleID = errors.New("invalid article ID")
	ErrQueryTooLong     = errors.New("search query too long")
)

// ListInput selects one page of the archive.
type ListInput struct {
	Category   string
	SourceSlug string
	Since      *time.Time
	Params     pagination.Params
}

// PaginatedResult represents the result of a paginated query.
// It contains both the data and pagination metadata.
type PaginatedResult struct {
	Data       []*entity.Article
	Pagination pagination.Metadata
}

// SourceSummary combines a source's archive counts with its last poll.
type SourceSummary struct {
	repository.SourceCount
	LastCheckedAt     *time.Time
	LastArticlesFound int
}

// Service provides article read use cases.
// Checkpoints is optional; without it source summaries carry no poll data.
type Service struct {
	Repo        repository.ArticleRepository
	Checkpoints repository.CheckpointRepository
}

// List retrieves one page of articles, newest effective date first, together
// with the total number of matches.
func (s *Service) List(ctx context.Context, in ListInput) (*PaginatedResult, error) {
	params := in.Params
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = pagination.DefaultConfig().DefaultLimit
	}

	filter := repository.ArticleFilter{
		Category:   in.Category,
		SourceSlug: in.SourceSlug,
		Since:      in.Since,
		Limit:      params.Limit,
		Offset:     pagination.CalculateOffset(params.Page, params.Limit),
	}

	total, err := s.Repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	articles, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return &PaginatedResult{
		Data: articles,
		Pagination: pagination.Metadata{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: pagination.CalculateTotalPages(total, params.Limit),
		},
	}, nil
}

// Get retrieves a single article by its ID.
// Returns ErrInvalidArticleID if the ID is not positive.
// Returns ErrArticleNotFound if the article does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Article, error) {
	if id <= 0 {
		return nil, ErrInvalidArticleID
	}

	article, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, ErrArticleNotFound
	}
	return article, nil
}

// Search runs a full-text query over headline, byline, description, tags and body.
// Quoted phrases, OR and -exclusion are supported. A blank query matches nothing.
// Returns ErrQueryTooLong if the query exceeds MaxQueryLength characters.
func (s *Service) Search(ctx context.Context, query string, filter repository.SearchFilter) ([]*entity.Article, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, ErrQueryTooLong
	}
	if query == "" {
		return []*entity.Article{}, nil
	}

	articles, err := s.Repo.Search(ctx, query, filter)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	return articles, nil
}

// Stats returns archive-wide totals and refreshes the archived articles gauge.
func (s *Service) Stats(ctx context.Context) (*repository.Stats, error) {
	stats, err := s.Repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}
	metrics.UpdateArticlesTotal(stats.TotalArticles)
	return stats, nil
}

// Categories returns article counts per category, largest first.
func (s *Service) Categories(ctx context.Context) ([]repository.CategoryCount, error) {
	counts, err := s.Repo.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return counts, nil
}

// Sources returns per-source article counts merged with checkpoint data.
// Sources that were polled but never produced an article are included with a zero count.
func (s *Service) Sources(ctx context.Context) ([]SourceSummary, error) {
	counts, err := s.Repo.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}

	summaries := make([]SourceSummary, 0, len(counts))
	index := make(map[string]int, len(counts))
	for _, c := range counts {
		index[c.SourceSlug] = len(summaries)
		summaries = append(summaries, SourceSummary{SourceCount: c})
	}

	if s.Checkpoints == nil {
		return summaries, nil
	}

	checkpoints, err := s.Checkpoints.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	for _, cp := range checkpoints {
		checked := cp.LastCheckedAt
		i, ok := index[cp.SourceSlug]
		if !ok {
			i = len(summaries)
			index[cp.SourceSlug] = i
			summaries = append(summaries, SourceSummary{SourceCount: repository.SourceCount{SourceSlug: cp.SourceSlug}})
		}
		summaries[i].LastCheckedAt = &checked
		summaries[i].LastArticlesFound = cp.ArticlesFound
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		if summaries[a].Count != summaries[b].Count {
			return summaries[a].Count > summaries[b].Count
		}
		return summaries[a].SourceSlug < summaries[b].SourceSlug
	})
	return summaries, nil
}
