package article

import (
	"net/http"

	"news-archiver/internal/common/pagination"
	artUC "news-archiver/internal/usecase/article"
)

// Register registers the read-only archive routes with the given mux.
// searchLimit, when non-nil, wraps the full-text search route.
func Register(mux *http.ServeMux, svc artUC.Service, paginationCfg pagination.Config, searchLimit func(http.Handler) http.Handler) {
	var search http.Handler = SearchHandler{Svc: svc, PaginationCfg: paginationCfg}
	if searchLimit != nil {
		search = searchLimit(search)
	}
	mux.Handle("GET /articles", ListHandler{Svc: svc, PaginationCfg: paginationCfg})
	mux.Handle("GET /articles/search", search)
	mux.Handle("GET /articles/{id}", GetHandler{Svc: svc})
	mux.Handle("GET /sources", SourcesHandler{Svc: svc})
	mux.Handle("GET /categories", CategoriesHandler{Svc: svc})
	mux.Handle("GET /stats", StatsHandler{Svc: svc})
}
