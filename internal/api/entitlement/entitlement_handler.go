package entitlement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/watchly/catalog-api/internal/api"
	"github.com/watchly/catalog-api/internal/api/auth"
)

type HandlerImpl struct {
	entitlementService EntitlementService
	logger             *slog.Logger
}

func NewHandlerImpl(entitlementService EntitlementService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		entitlementService: entitlementService,
		logger:             logger,
	}
}

func (h *HandlerImpl) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

// GenreIDParam parses the {id} route parameter.
func GenreIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GetGenres godoc
// @Summary      List entitled genres
// @Description  Returns the genres the caller's active subscriptions unlock, alphabetically.
// @Tags         Genres
// @Produce      json
// @Success      200 {array} types.Genre
// @Failure      401 {object} types.Response "No Active Subscription"
// @Security     BearerAuth
// @Router       /genres [get]
func (h *HandlerImpl) GetGenres(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetGenres"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	genres, err := h.entitlementService.GetGenres(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to resolve genres", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, genres)
}

// GetGenreDetail godoc
// @Summary      Genre detail
// @Description  Returns a genre with its latest releases and most popular titles. The two lists never overlap.
// @Tags         Genres
// @Produce      json
// @Param        id path int true "Genre ID"
// @Success      200 {object} types.GenreDetail
// @Failure      401 {object} types.Response "No Active Subscription"
// @Failure      404 {object} types.Response "Genre Not Found"
// @Security     BearerAuth
// @Router       /genres/{id} [get]
func (h *HandlerImpl) GetGenreDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetGenreDetail"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	genreID, err := GenreIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid genre ID format")
		return
	}

	detail, err := h.entitlementService.GetGenreDetail(ctx, userID, genreID)
	if err != nil {
		l.WarnContext(ctx, "Failed to resolve genre detail", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, detail)
}
