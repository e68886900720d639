package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/watchly/catalog-api/internal/types"
)

const plansCacheKey = "plans:purchasable"

var _ PlanService = (*PlanServiceImpl)(nil)

// PlanService exposes the purchasable-plan catalog.
type PlanService interface {
	GetPlans(ctx context.Context) ([]types.Plan, error)
	GetPlan(ctx context.Context, planID int64) (*types.Plan, error)
}

type PlanServiceImpl struct {
	logger *slog.Logger
	repo   PlanRepository
	cache  *cache.Cache
}

// NewPlanService caches the plan list for five minutes. Plans change by
// migration, not at runtime, so a short TTL is more than enough.
func NewPlanService(repo PlanRepository, logger *slog.Logger) *PlanServiceImpl {
	return &PlanServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *PlanServiceImpl) GetPlans(ctx context.Context) ([]types.Plan, error) {
	l := s.logger.With(slog.String("method", "GetPlans"))

	if cached, found := s.cache.Get(plansCacheKey); found {
		l.DebugContext(ctx, "Serving plans from cache")
		return cached.([]types.Plan), nil
	}

	plans, err := s.repo.GetPlans(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch plans", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching plans: %w", err)
	}

	s.cache.Set(plansCacheKey, plans, cache.DefaultExpiration)
	return plans, nil
}

func (s *PlanServiceImpl) GetPlan(ctx context.Context, planID int64) (*types.Plan, error) {
	l := s.logger.With(slog.String("method", "GetPlan"), slog.Int64("planID", planID))

	p, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch plan", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching plan: %w", err)
	}
	return p, nil
}
