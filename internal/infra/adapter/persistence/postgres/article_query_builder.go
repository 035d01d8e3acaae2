// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"fmt"
	"strings"

	"news-archiver/internal/repository"
)

// effectiveDateExpr orders and filters articles by publish date, falling back to discovery time.
const effectiveDateExpr = "COALESCE(published_at, discovered_at)"

// ArticleQueryBuilder builds WHERE clauses for article listings and full-text search.
// The same clause is shared by the COUNT and SELECT variants of a listing.
// It uses PostgreSQL numbered placeholders ($1, $2, etc.).
type ArticleQueryBuilder struct{}

// NewArticleQueryBuilder creates a new query builder instance.
func NewArticleQueryBuilder() *ArticleQueryBuilder {
	return &ArticleQueryBuilder{}
}

type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// BuildWhereClause builds the WHERE clause and arguments for a listing filter.
// Returns an empty clause when the filter has no constraints.
func (qb *ArticleQueryBuilder) BuildWhereClause(filter repository.ArticleFilter) (clause string, args []interface{}) {
	var w whereBuilder
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	if filter.SourceSlug != "" {
		w.add("source_slug = $%d", filter.SourceSlug)
	}
	if filter.Since != nil {
		w.add(effectiveDateExpr+" >= $%d", *filter.Since)
	}
	return w.clause(), w.args
}

// BuildSearchClause builds the WHERE clause for a full-text query.
// The query text is always argument $1 so the ranking expression can reuse it.
func (qb *ArticleQueryBuilder) BuildSearchClause(query string, filter repository.SearchFilter) (clause string, args []interface{}) {
	var w whereBuilder
	w.add("search_vector @@ websearch_to_tsquery('english', $%d)", query)
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	if filter.SourceSlug != "" {
		w.add("source_slug = $%d", filter.SourceSlug)
	}
	return w.clause(), w.args
}
