package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/watchly/catalog-api/internal/api"
)

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register
// @Description  Creates a user plus the initial free subscription and returns an access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration"
// @Success      201 {object} TokenResponse
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      409 {object} types.Response "Email Already Taken"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	dob, err := ParseDateOfBirth(req.DateOfBirth)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		return
	}

	token, err := h.authService.Register(ctx, RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: dob,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	})
	if err != nil {
		l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, TokenResponse{AccessToken: token})
}

// Login godoc
// @Summary      Login
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} TokenResponse
// @Failure      401 {object} types.Response "Invalid Credentials"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		// Invalid email and invalid password are indistinguishable here.
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{AccessToken: token})
}

// GetUser godoc
// @Summary      Get the authenticated user
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.UserProfile
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/user [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUser"))

	userIDStr, ok := GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, user)
}
