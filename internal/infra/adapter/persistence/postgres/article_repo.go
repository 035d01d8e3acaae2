package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/observability/metrics"
	"news-archiver/internal/repository"
	"news-archiver/internal/resilience/circuitbreaker"
)

const (
	// DefaultListLimit applies when a filter carries no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page of results.
	MaxListLimit = 200

	searchTimeout = 5 * time.Second
)

const articleColumns = `id, url, source_slug, source_name, category, headline, byline, description, body,
       published_at, discovered_at, preview_image_url, preview_image_local, image_urls, tags`

type ArticleRepo struct {
	db           circuitbreaker.Querier
	queryBuilder *ArticleQueryBuilder
}

// NewArticleRepo accepts either a *sql.DB or a *circuitbreaker.StoreBreaker.
func NewArticleRepo(db circuitbreaker.Querier) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewArticleQueryBuilder(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(s rowScanner) (*entity.Article, error) {
	var (
		article     entity.Article
		publishedAt sql.NullTime
		imagesJSON  []byte
		tagsJSON    []byte
	)
	if err := s.Scan(
		&article.ID, &article.URL, &article.SourceSlug, &article.SourceName, &article.Category,
		&article.Headline, &article.Byline, &article.Description, &article.Body,
		&publishedAt, &article.DiscoveredAt, &article.PreviewImageURL, &article.PreviewImageLocal,
		&imagesJSON, &tagsJSON,
	); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		article.PublishedAt = &t
	}
	var err error
	if article.ImageURLs, err = decodeStrings(imagesJSON); err != nil {
		return nil, fmt.Errorf("unmarshal image_urls: %w", err)
	}
	if article.Tags, err = decodeStrings(tagsJSON); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &article, nil
}

func decodeStrings(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func encodeStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func collectArticles(rows *sql.Rows, capacity int) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, capacity)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (repo *ArticleRepo) InsertIfAbsent(ctx context.Context, article *entity.Article) (bool, error) {
	defer observe("insert", time.Now())

	const query = `
INSERT INTO articles
       (url, source_slug, source_name, category, headline, byline, description, body,
        published_at, discovered_at, preview_image_url, preview_image_local, image_urls, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (url) DO NOTHING
RETURNING id`
	images, err := encodeStrings(article.ImageURLs)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: image_urls: %w", err)
	}
	tags, err := encodeStrings(article.Tags)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: tags: %w", err)
	}
	var publishedAt interface{}
	if article.PublishedAt != nil {
		publishedAt = article.PublishedAt.UTC()
	}

	var id int64
	err = repo.db.QueryRowContext(ctx, query,
		article.URL, article.SourceSlug, article.SourceName, article.Category,
		article.Headline, article.Byline, article.Description, article.Body,
		publishedAt, article.DiscoveredAt.UTC(), article.PreviewImageURL, article.PreviewImageLocal,
		images, tags,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// the URL was already archived
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: %w", err)
	}
	article.ID = id
	return true, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	defer observe("get", time.Now())

	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE id = $1
LIMIT 1`
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) GetByURL(ctx context.Context, url string) (*entity.Article, error) {
	defer observe("get_by_url", time.Now())

	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE url = $1
LIMIT 1`
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	defer observe("exists", time.Now())

	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, url).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	return existsFlag, nil
}

// List returns one page of articles, newest effective date first.
//
// Parameters:
//   - filter.Category / filter.SourceSlug: exact match when non-empty
//   - filter.Since: lower bound on the effective date
//   - filter.Limit: page size (DefaultListLimit when zero, capped at MaxListLimit)
//   - filter.Offset: rows to skip
func (repo *ArticleRepo) List(ctx context.Context, filter repository.ArticleFilter) ([]*entity.Article, error) {
	defer observe("list", time.Now())

	whereClause, args := repo.queryBuilder.BuildWhereClause(filter)
	limit := normalizeLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	paramIndex := len(args) + 1
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
SELECT %s
FROM articles
%s
ORDER BY %s DESC, id DESC
LIMIT $%d OFFSET $%d`, articleColumns, whereClause, effectiveDateExpr, paramIndex, paramIndex+1)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := collectArticles(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("List: Scan: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) Count(ctx context.Context, filter repository.ArticleFilter) (int64, error) {
	defer observe("count", time.Now())

	whereClause, args := repo.queryBuilder.BuildWhereClause(filter)
	query := "SELECT COUNT(*) FROM articles " + whereClause

	var count int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

// Search runs a websearch-style query (quoted phrases, OR, -exclusion) against the
// generated search_vector column and ranks matches with ts_rank.
// A blank query yields an empty result without touching the database.
func (repo *ArticleRepo) Search(ctx context.Context, query string, filter repository.SearchFilter) ([]*entity.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*entity.Article{}, nil
	}
	defer observe("search", time.Now())

	// Apply search timeout to prevent long-running queries
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	whereClause, args := repo.queryBuilder.BuildSearchClause(query, filter)
	limit := normalizeLimit(filter.Limit)
	args = append(args, limit)

	sqlQuery := fmt.Sprintf(`
SELECT %s
FROM articles
%s
ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', $1)) DESC, %s DESC
LIMIT $%d`, articleColumns, whereClause, effectiveDateExpr, len(args))

	rows, err := repo.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := collectArticles(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("Search: Scan: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) CountBySource(ctx context.Context) ([]repository.SourceCount, error) {
	defer observe("count_by_source", time.Now())

	const query = `
SELECT source_slug, MAX(source_name), MAX(category), COUNT(*),
       MAX(COALESCE(published_at, discovered_at))
FROM articles
GROUP BY source_slug
ORDER BY COUNT(*) DESC, source_slug`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.SourceCount, 0, 32)
	for rows.Next() {
		var (
			sc     repository.SourceCount
			latest sql.NullTime
		)
		if err := rows.Scan(&sc.SourceSlug, &sc.SourceName, &sc.Category, &sc.Count, &latest); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		if latest.Valid {
			t := latest.Time
			sc.Latest = &t
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (repo *ArticleRepo) CountByCategory(ctx context.Context) ([]repository.CategoryCount, error) {
	defer observe("count_by_category", time.Now())

	const query = `
SELECT category, COUNT(*)
FROM articles
GROUP BY category
ORDER BY COUNT(*) DESC, category`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByCategory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.CategoryCount, 0, 16)
	for rows.Next() {
		var cc repository.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("CountByCategory: Scan: %w", err)
		}
		result = append(result, cc)
	}
	return result, rows.Err()
}

func (repo *ArticleRepo) Stats(ctx context.Context) (*repository.Stats, error) {
	defer observe("stats", time.Now())

	const query = `
SELECT COUNT(*), COUNT(DISTINCT source_slug), MAX(COALESCE(published_at, discovered_at))
FROM articles`
	var (
		stats  repository.Stats
		newest sql.NullTime
	)
	err := repo.db.QueryRowContext(ctx, query).Scan(&stats.TotalArticles, &stats.TotalSources, &newest)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	if newest.Valid {
		t := newest.Time
		stats.NewestArticle = &t
	}
	return &stats, nil
}

func observe(operation string, start time.Time) {
	metrics.RecordDBQuery(operation, time.Since(start))
}
