package router

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/watchly/catalog-api/internal/api/auth"
	"github.com/watchly/catalog-api/internal/container"
)

// swaggerDoc is the OpenAPI document served to the swagger UI.
//
//go:embed doc.json
var swaggerDoc []byte

// Config contains dependencies needed for the router setup
type Config struct {
	Container              *container.Container
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to
// be applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/docs/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerDoc)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	c := cfg.Container

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", c.AuthHandler.Register)
			r.Post("/auth/login", c.AuthHandler.Login)
			r.Get("/plans", c.PlanHandler.GetPlans)
			r.Get("/plans/{id}", c.PlanHandler.GetPlan)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/auth/user", c.AuthHandler.GetUser)

			r.Get("/genres", c.EntitlementHandler.GetGenres)
			r.Get("/genres/{id}", c.EntitlementHandler.GetGenreDetail)
			r.Get("/genres/{id}/movies", c.CatalogHandler.ListMovies)

			r.Get("/subscription", c.SubscriptionHandler.GetCurrent)
			r.Delete("/subscription/{id}", c.SubscriptionHandler.Cancel)
			r.Post("/checkout", c.SubscriptionHandler.Checkout)
			r.Post("/checkout/verify", c.SubscriptionHandler.VerifyCheckout)
		})
	})

	return r
}

// Authenticate builds the JWT middleware from the container's config.
func Authenticate(c *container.Container) func(http.Handler) http.Handler {
	return auth.Authenticate(c.Logger, c.Config.Auth)
}
