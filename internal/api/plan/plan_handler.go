package plan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/watchly/catalog-api/internal/api"
)

type HandlerImpl struct {
	planService PlanService
	logger      *slog.Logger
}

func NewHandlerImpl(planService PlanService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		planService: planService,
		logger:      logger,
	}
}

// GetPlans godoc
// @Summary      List plans
// @Description  Returns the purchasable plans with the genres each one unlocks, cheapest first.
// @Tags         Plans
// @Produce      json
// @Success      200 {array} types.Plan
// @Router       /plans [get]
func (h *HandlerImpl) GetPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetPlans"))

	plans, err := h.planService.GetPlans(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch plans", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, plans)
}

// GetPlan godoc
// @Summary      Plan detail
// @Tags         Plans
// @Produce      json
// @Param        id path int true "Plan ID"
// @Success      200 {object} types.Plan
// @Failure      404 {object} types.Response "Plan Not Found"
// @Router       /plans/{id} [get]
func (h *HandlerImpl) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetPlan"))

	planID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	p, err := h.planService.GetPlan(ctx, planID)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch plan", slog.Any("error", err))
		status, msg := api.StatusFromError(err)
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, p)
}
