package article

import (
	"errors"
	"net/http"

	"news-archiver/internal/handler/http/pathutil"
	"news-archiver/internal/handler/http/respond"
	artUC "news-archiver/internal/usecase/article"
)

// GetHandler serves GET /articles/{id}. Unlike the listings it includes the
// archived body.
type GetHandler struct{ Svc artUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	article, err := h.Svc.Get(r.Context(), id)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, toDTO(article, true))
	case errors.Is(err, artUC.ErrArticleNotFound):
		respond.SafeError(w, http.StatusNotFound, err)
	case errors.Is(err, artUC.ErrInvalidArticleID):
		respond.SafeError(w, http.StatusBadRequest, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}
