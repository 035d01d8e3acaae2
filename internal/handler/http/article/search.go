package article

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"news-archiver/internal/common/pagination"
	"news-archiver/internal/handler/http/respond"
	"news-archiver/internal/observability/logging"
	"news-archiver/internal/repository"
	artUC "news-archiver/internal/usecase/article"
)

// SearchResponse is the body of GET /articles/search.
type SearchResponse struct {
	Query string `json:"query"`
	Count int    `json:"count"`
	Data  []DTO  `json:"data"`
}

// SearchHandler serves GET /articles/search.
//
// Query parameters:
//   - q: full-text query; quoted phrases, OR and -exclusion are supported
//   - category, source: optional exact-match filters
//   - limit: maximum number of results, ordered by relevance
type SearchHandler struct {
	Svc           artUC.Service
	PaginationCfg pagination.Config
}

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	filter := repository.SearchFilter{
		Category:   strings.TrimSpace(query.Get("category")),
		SourceSlug: strings.TrimSpace(query.Get("source")),
		Limit:      params.Limit,
	}

	articles, err := h.Svc.Search(ctx, q, filter)
	if err != nil {
		if errors.Is(err, artUC.ErrQueryTooLong) {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		logging.FromContext(ctx).Error("search failed",
			slog.String("query", q),
			slog.String("error", respond.SanitizeError(err)))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	data := toDTOs(articles)
	respond.JSON(w, http.StatusOK, SearchResponse{Query: q, Count: len(data), Data: data})
}
