package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/config"
	"github.com/watchly/catalog-api/internal/api/auth"
	"github.com/watchly/catalog-api/internal/api/catalog"
	"github.com/watchly/catalog-api/internal/api/entitlement"
	"github.com/watchly/catalog-api/internal/api/plan"
	"github.com/watchly/catalog-api/internal/api/subscription"
	"github.com/watchly/catalog-api/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	AuthHandler         *auth.HandlerImpl
	PlanHandler         *plan.HandlerImpl
	EntitlementHandler  *entitlement.HandlerImpl
	CatalogHandler      *catalog.HandlerImpl
	SubscriptionHandler *subscription.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	clock := types.NewRealClock()

	// Repositories
	planRepo := plan.NewPostgresPlanRepo(pool, logger)
	subscriptionRepo := subscription.NewPostgresSubscriptionRepo(pool, logger)
	authRepo := auth.NewPostgresAuthRepo(pool, subscriptionRepo, logger)
	entitlementRepo := entitlement.NewPostgresEntitlementRepo(pool, logger)
	catalogRepo := catalog.NewPostgresCatalogRepo(pool, logger)

	// Services
	planService := plan.NewPlanService(planRepo, logger)
	checkoutProvider := subscription.NewLocalCheckoutProvider()
	subscriptionService := subscription.NewSubscriptionService(subscriptionRepo, planRepo, checkoutProvider, clock, logger)
	authService := auth.NewAuthService(authRepo, cfg.Auth, clock, logger)
	entitlementService := entitlement.NewEntitlementService(entitlementRepo, clock, logger)
	catalogService := catalog.NewCatalogService(catalogRepo, entitlementService, clock, logger)

	// Handlers
	return &Container{
		Config:              cfg,
		Logger:              logger,
		Pool:                pool,
		AuthHandler:         auth.NewHandlerImpl(authService, logger),
		PlanHandler:         plan.NewHandlerImpl(planService, logger),
		EntitlementHandler:  entitlement.NewHandlerImpl(entitlementService, logger),
		CatalogHandler:      catalog.NewHandlerImpl(catalogService, logger),
		SubscriptionHandler: subscription.NewHandlerImpl(subscriptionService, logger),
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
