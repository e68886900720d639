package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/watchly/catalog-api/internal/api"
	"github.com/watchly/catalog-api/internal/api/auth"
	"github.com/watchly/catalog-api/internal/api/entitlement"
)

type HandlerImpl struct {
	catalogService CatalogService
	logger         *slog.Logger
}

func NewHandlerImpl(catalogService CatalogService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListMovies godoc
// @Summary      List a genre's movies
// @Description  Pages through the genre's movies the caller may see. Sorting is ascending with a stable id tie-break.
// @Tags         Genres
// @Produce      json
// @Param        id path int true "Genre ID"
// @Param        orderBy query string false "Sort field: title, rating, popularity, release_date" default(title)
// @Param        page query int false "Page number, 1-based" default(1)
// @Param        limit query int false "Page size, max 100" default(10)
// @Success      200 {array} types.Movie
// @Failure      400 {object} types.Response "Invalid Paging"
// @Failure      401 {object} types.Response "No Active Subscription"
// @Failure      404 {object} types.Response "Genre Not Found"
// @Security     BearerAuth
// @Router       /genres/{id}/movies [get]
func (h *HandlerImpl) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListMovies"))

	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	genreID, err := entitlement.GenreIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid genre ID format")
		return
	}

	params := ListParams{
		GenreID: genreID,
		OrderBy: DefaultOrderBy,
		Page:    DefaultPage,
		Limit:   DefaultLimit,
	}
	q := r.URL.Query()
	if v := q.Get("orderBy"); v != "" {
		params.OrderBy = v
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "page must be an integer")
			return
		}
		params.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		params.Limit = limit
	}

	movies, err := h.catalogService.ListMovies(ctx, userID, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to list movies", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, movies)
}
