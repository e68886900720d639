package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/watchly/catalog-api/internal/api"
	"github.com/watchly/catalog-api/internal/api/auth"
)

type HandlerImpl struct {
	subscriptionService SubscriptionService
	logger              *slog.Logger
}

func NewHandlerImpl(subscriptionService SubscriptionService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		subscriptionService: subscriptionService,
		logger:              logger,
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

// Checkout godoc
// @Summary      Create a checkout session
// @Description  Opens a payment session for a purchasable plan and records a pending subscription.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        body body CheckoutRequest true "Plan to purchase"
// @Success      201 {object} CheckoutResponse
// @Failure      400 {object} types.Response "Invalid Plan"
// @Failure      404 {object} types.Response "Plan Not Found"
// @Security     BearerAuth
// @Router       /checkout [post]
func (h *HandlerImpl) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Checkout"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.subscriptionService.Checkout(ctx, userID, req.PlanID)
	if err != nil {
		l.ErrorContext(ctx, "Checkout failed", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, session)
}

// VerifyCheckout godoc
// @Summary      Verify a checkout session
// @Description  Confirms payment for a session and activates the pending subscription. Retrying is harmless.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        body body VerifyRequest true "Session to verify"
// @Success      200 {object} types.Subscription
// @Failure      404 {object} types.Response "Unknown Session"
// @Security     BearerAuth
// @Router       /checkout/verify [post]
func (h *HandlerImpl) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyCheckout"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "id is required")
		return
	}

	sub, err := h.subscriptionService.VerifyCheckout(ctx, userID, req.ID)
	if err != nil {
		l.ErrorContext(ctx, "Checkout verification failed", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, sub)
}

// GetCurrent godoc
// @Summary      Current subscription
// @Description  Returns the caller's open subscription with its plan.
// @Tags         Subscription
// @Produce      json
// @Success      200 {object} types.Subscription
// @Failure      404 {object} types.Response "No Open Subscription"
// @Security     BearerAuth
// @Router       /subscription [get]
func (h *HandlerImpl) GetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetCurrent"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Current(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch current subscription", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, sub)
}

// Cancel godoc
// @Summary      Cancel a subscription
// @Description  Cancels the caller's subscription by id. Access continues until the recorded expiry.
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200 {object} types.Subscription
// @Failure      404 {object} types.Response "Not Found"
// @Failure      409 {object} types.Response "Already Cancelled"
// @Security     BearerAuth
// @Router       /subscription/{id} [delete]
func (h *HandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Cancel"))

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	subID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid subscription ID format")
		return
	}

	sub, err := h.subscriptionService.Cancel(ctx, userID, subID)
	if err != nil {
		l.WarnContext(ctx, "Cancellation failed", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, sub)
}
