package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/watchly/catalog-api/app/observability/metrics"
	"github.com/watchly/catalog-api/internal/api/entitlement"
	"github.com/watchly/catalog-api/internal/types"
)

const (
	DefaultPage    = 1
	DefaultLimit   = 10
	MaxLimit       = 100
	DefaultOrderBy = "title"
)

// orderColumns is the allow-list of sortable fields. Values are the
// actual column names handed to the repository, never raw client input.
var orderColumns = map[string]string{
	"title":        "title",
	"rating":       "rating",
	"popularity":   "popularity",
	"release_date": "release_date",
}

// ListParams is a validated page request.
type ListParams struct {
	GenreID int64
	OrderBy string
	Page    int
	Limit   int
}

var _ CatalogService = (*CatalogServiceImpl)(nil)

// CatalogService pages through a genre's movies for an entitled user.
type CatalogService interface {
	// ListMovies validates paging input, authorizes the genre and returns
	// the requested page. A page past the end is empty, not an error.
	ListMovies(ctx context.Context, userID uuid.UUID, params ListParams) ([]types.Movie, error)
}

type CatalogServiceImpl struct {
	logger       *slog.Logger
	repo         CatalogRepository
	entitlements entitlement.EntitlementService
	clock        types.Clock
}

func NewCatalogService(repo CatalogRepository, entitlements entitlement.EntitlementService, clock types.Clock, logger *slog.Logger) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		logger:       logger,
		repo:         repo,
		entitlements: entitlements,
		clock:        clock,
	}
}

func (s *CatalogServiceImpl) ListMovies(ctx context.Context, userID uuid.UUID, params ListParams) ([]types.Movie, error) {
	l := s.logger.With(slog.String("method", "ListMovies"),
		slog.String("userID", userID.String()), slog.Int64("genreID", params.GenreID))
	l.DebugContext(ctx, "Listing movies", slog.String("orderBy", params.OrderBy),
		slog.Int("page", params.Page), slog.Int("limit", params.Limit))

	column, ok := orderColumns[params.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unsupported order_by %q: %w", params.OrderBy, types.ErrInvalidArgument)
	}
	if params.Page < 1 {
		return nil, fmt.Errorf("page must be >= 1: %w", types.ErrInvalidArgument)
	}
	if params.Limit < 1 || params.Limit > MaxLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d: %w", MaxLimit, types.ErrInvalidArgument)
	}

	// Unauthorized wins over not-found when both would apply.
	if err := s.entitlements.Authorize(ctx, userID, params.GenreID); err != nil {
		l.WarnContext(ctx, "Genre access denied", slog.Any("error", err))
		return nil, err
	}

	start := time.Now()
	offset := (params.Page - 1) * params.Limit
	movies, err := s.repo.ListMovies(ctx, userID, params.GenreID, column, offset, params.Limit, s.clock.Now())
	metrics.Get().CatalogQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("order_by", params.OrderBy)))
	if err != nil {
		l.ErrorContext(ctx, "Failed to list movies", slog.Any("error", err))
		return nil, fmt.Errorf("error listing movies: %w", err)
	}

	if movies == nil {
		movies = []types.Movie{}
	}
	return movies, nil
}
