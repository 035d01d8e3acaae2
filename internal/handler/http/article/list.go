package article

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"news-archiver/internal/common/pagination"
	"news-archiver/internal/handler/http/respond"
	"news-archiver/internal/observability/logging"
	artUC "news-archiver/internal/usecase/article"
)

var errInvalidSince = errors.New("invalid query parameter: since must be a date")

// ListHandler serves GET /articles.
//
// Query parameters:
//   - category: exact category match
//   - source: exact source slug match
//   - since: lower bound on the article date; any format dateparse understands
//   - page, limit: pagination (see pagination.ParseQueryParams)
type ListHandler struct {
	Svc           artUC.Service
	PaginationCfg pagination.Config
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	query := r.URL.Query()
	in := artUC.ListInput{
		Category:   strings.TrimSpace(query.Get("category")),
		SourceSlug: strings.TrimSpace(query.Get("source")),
		Params:     params,
	}
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, errInvalidSince)
			return
		}
		in.Since = &since
	}

	result, err := h.Svc.List(ctx, in)
	if err != nil {
		logger.Error("failed to list articles",
			slog.Int("page", params.Page),
			slog.Int("limit", params.Limit),
			slog.String("error", respond.SanitizeError(err)))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	logger.Debug("listed articles",
		slog.Int("page", params.Page),
		slog.Int("returned", len(result.Data)),
		slog.Int64("total", result.Pagination.Total))

	respond.JSON(w, http.StatusOK, pagination.NewResponse(toDTOs(result.Data), result.Pagination))
}

func parseSince(raw string) (time.Time, error) {
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
