package article

import (
	"net/http"

	"news-archiver/internal/handler/http/respond"
	artUC "news-archiver/internal/usecase/article"
)

// SourcesHandler serves GET /sources: per-source article counts with the last poll.
type SourcesHandler struct{ Svc artUC.Service }

func (h SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Svc.Sources(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]SourceDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSourceDTO(s))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// CategoriesHandler serves GET /categories.
type CategoriesHandler struct{ Svc artUC.Service }

func (h CategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Svc.Categories(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]CategoryDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, toCategoryDTO(c))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// StatsHandler serves GET /stats.
type StatsHandler struct{ Svc artUC.Service }

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, StatsDTO{
		TotalArticles: stats.TotalArticles,
		TotalSources:  stats.TotalSources,
		NewestArticle: stats.NewestArticle,
	})
}
