package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/watchly/catalog-api/app/observability/metrics"
	"github.com/watchly/catalog-api/internal/types"
)

// --- Mocks for Dependencies ---

type MockEntitlementService struct {
	mock.Mock
}

func (m *MockEntitlementService) GetGenres(ctx context.Context, userID uuid.UUID) ([]types.Genre, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Genre), args.Error(1)
}

func (m *MockEntitlementService) GetGenreDetail(ctx context.Context, userID uuid.UUID, genreID int64) (*types.GenreDetail, error) {
	args := m.Called(ctx, userID, genreID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GenreDetail), args.Error(1)
}

func (m *MockEntitlementService) Authorize(ctx context.Context, userID uuid.UUID, genreID int64) error {
	args := m.Called(ctx, userID, genreID)
	return args.Error(0)
}

// sliceRepo serves pages out of an in-memory, pre-sorted fixture, the way
// the database would with OFFSET/LIMIT.
type sliceRepo struct {
	movies []types.Movie
}

func (r *sliceRepo) ListMovies(_ context.Context, _ uuid.UUID, _ int64, _ string, offset, limit int, _ time.Time) ([]types.Movie, error) {
	if offset >= len(r.movies) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.movies) {
		end = len(r.movies)
	}
	return r.movies[offset:end], nil
}

var testInstant = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo CatalogRepository, entitlements *MockEntitlementService) *CatalogServiceImpl {
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalogService(repo, entitlements, types.FixedClock{Instant: testInstant}, logger)
}

func defaultParams() ListParams {
	return ListParams{GenreID: 1, OrderBy: DefaultOrderBy, Page: DefaultPage, Limit: DefaultLimit}
}

func TestListMovies_RejectsUnknownOrderColumn(t *testing.T) {
	entitlements := new(MockEntitlementService)
	svc := newTestService(&sliceRepo{}, entitlements)

	params := defaultParams()
	params.OrderBy = "id; DROP TABLE movies"

	_, err := svc.ListMovies(context.Background(), uuid.New(), params)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	entitlements.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMovies_RejectsBadPaging(t *testing.T) {
	entitlements := new(MockEntitlementService)
	svc := newTestService(&sliceRepo{}, entitlements)

	for _, tc := range []struct {
		name  string
		page  int
		limit int
	}{
		{"zero page", 0, 10},
		{"negative page", -3, 10},
		{"zero limit", 1, 0},
		{"limit over max", 1, MaxLimit + 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultParams()
			params.Page = tc.page
			params.Limit = tc.limit

			_, err := svc.ListMovies(context.Background(), uuid.New(), params)

			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidArgument))
		})
	}
}

func TestListMovies_PropagatesEntitlementDenial(t *testing.T) {
	entitlements := new(MockEntitlementService)
	svc := newTestService(&sliceRepo{}, entitlements)
	userID := uuid.New()

	entitlements.On("Authorize", mock.Anything, userID, int64(1)).Return(types.ErrUnauthorized)

	_, err := svc.ListMovies(context.Background(), userID, defaultParams())

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
}

func TestListMovies_PagesConcatenateWithoutGapsOrDuplicates(t *testing.T) {
	fixture := make([]types.Movie, 0, 25)
	for i := int64(1); i <= 25; i++ {
		fixture = append(fixture, types.Movie{ID: i, Title: "Movie"})
	}

	entitlements := new(MockEntitlementService)
	entitlements.On("Authorize", mock.Anything, mock.Anything, int64(1)).Return(nil)
	svc := newTestService(&sliceRepo{movies: fixture}, entitlements)
	userID := uuid.New()

	var collected []types.Movie
	for page := 1; page <= 3; page++ {
		params := defaultParams()
		params.Page = page
		movies, err := svc.ListMovies(context.Background(), userID, params)
		require.NoError(t, err)
		collected = append(collected, movies...)
	}

	assert.Equal(t, fixture, collected)
}

func TestListMovies_PagePastEndIsEmptyNotError(t *testing.T) {
	entitlements := new(MockEntitlementService)
	entitlements.On("Authorize", mock.Anything, mock.Anything, int64(1)).Return(nil)
	svc := newTestService(&sliceRepo{movies: []types.Movie{{ID: 1}}}, entitlements)

	params := defaultParams()
	params.Page = 40

	movies, err := svc.ListMovies(context.Background(), uuid.New(), params)

	require.NoError(t, err)
	assert.Empty(t, movies)
	assert.NotNil(t, movies)
}
