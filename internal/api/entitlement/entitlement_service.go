package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/watchly/catalog-api/app/observability/metrics"
	"github.com/watchly/catalog-api/internal/types"
)

// sublistLimit caps the latest and popular rails on a genre detail page.
const sublistLimit = 10

var _ EntitlementService = (*EntitlementServiceImpl)(nil)

// EntitlementService is the resolver: it decides what the caller may
// browse before any catalog data leaves the API.
type EntitlementService interface {
	// GetGenres lists the genres the user's subscriptions unlock.
	// types.ErrUnauthorized when no qualifying subscription exists.
	GetGenres(ctx context.Context, userID uuid.UUID) ([]types.Genre, error)

	// GetGenreDetail returns the genre with its latest and popular rails.
	// The two rails never overlap. types.ErrUnauthorized without a
	// qualifying subscription, types.ErrNotFound when the genre is
	// unknown or outside the user's plans.
	GetGenreDetail(ctx context.Context, userID uuid.UUID, genreID int64) (*types.GenreDetail, error)

	// Authorize fails with types.ErrUnauthorized when the user holds no
	// qualifying subscription, then types.ErrNotFound when the genre is
	// outside their entitlements. Ordering matters: a lapsed subscriber
	// hears "unauthorized", never "not found".
	Authorize(ctx context.Context, userID uuid.UUID, genreID int64) error
}

type EntitlementServiceImpl struct {
	logger *slog.Logger
	repo   EntitlementRepository
	clock  types.Clock
}

func NewEntitlementService(repo EntitlementRepository, clock types.Clock, logger *slog.Logger) *EntitlementServiceImpl {
	return &EntitlementServiceImpl{
		logger: logger,
		repo:   repo,
		clock:  clock,
	}
}

func (s *EntitlementServiceImpl) requireSubscription(ctx context.Context, userID uuid.UUID) error {
	now := s.clock.Now()
	ok, err := s.repo.HasEntitlement(ctx, userID, now)
	if err != nil {
		return err
	}
	if !ok {
		metrics.Get().EntitlementDeniedTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", "no_entitlement")))
		return fmt.Errorf("access denied: %w", types.ErrUnauthorized)
	}
	return nil
}

func (s *EntitlementServiceImpl) GetGenres(ctx context.Context, userID uuid.UUID) ([]types.Genre, error) {
	l := s.logger.With(slog.String("method", "GetGenres"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Resolving entitled genres")

	if err := s.requireSubscription(ctx, userID); err != nil {
		l.WarnContext(ctx, "Entitlement check failed", slog.Any("error", err))
		return nil, err
	}

	genres, err := s.repo.GenresForUser(ctx, userID, s.clock.Now())
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch genres", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching genres: %w", err)
	}
	return genres, nil
}

func (s *EntitlementServiceImpl) GetGenreDetail(ctx context.Context, userID uuid.UUID, genreID int64) (*types.GenreDetail, error) {
	l := s.logger.With(slog.String("method", "GetGenreDetail"),
		slog.String("userID", userID.String()), slog.Int64("genreID", genreID))
	l.DebugContext(ctx, "Resolving genre detail")

	if err := s.requireSubscription(ctx, userID); err != nil {
		l.WarnContext(ctx, "Entitlement check failed", slog.Any("error", err))
		return nil, err
	}

	now := s.clock.Now()
	detail := &types.GenreDetail{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		genre, err := s.repo.GenreForUser(gCtx, userID, genreID, now)
		if err != nil {
			return err
		}
		detail.Genre = *genre
		return nil
	})
	g.Go(func() error {
		latest, err := s.repo.LatestMovies(gCtx, userID, genreID, sublistLimit, now)
		if err != nil {
			return err
		}
		detail.Latest = latest
		return nil
	})
	if err := g.Wait(); err != nil {
		l.WarnContext(ctx, "Genre detail resolution failed", slog.Any("error", err))
		return nil, err
	}

	// Popular excludes whatever the latest rail already shows.
	exclude := make([]int64, 0, len(detail.Latest))
	for _, m := range detail.Latest {
		exclude = append(exclude, m.ID)
	}
	popular, err := s.repo.PopularMovies(ctx, userID, genreID, sublistLimit, exclude, now)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch popular movies", slog.Any("error", err))
		return nil, err
	}
	detail.Popular = popular

	return detail, nil
}

func (s *EntitlementServiceImpl) Authorize(ctx context.Context, userID uuid.UUID, genreID int64) error {
	if err := s.requireSubscription(ctx, userID); err != nil {
		return err
	}
	if _, err := s.repo.GenreForUser(ctx, userID, genreID, s.clock.Now()); err != nil {
		return err
	}
	return nil
}
