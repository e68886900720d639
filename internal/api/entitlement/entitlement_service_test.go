package entitlement

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

type MockEntitlementRepo struct {
	mock.Mock
}

func (m *MockEntitlementRepo) HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntitlementRepo) GenresForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]types.Genre, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Genre), args.Error(1)
}

func (m *MockEntitlementRepo) GenreForUser(ctx context.Context, userID uuid.UUID, genreID int64, now time.Time) (*types.Genre, error) {
	args := m.Called(ctx, userID, genreID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Genre), args.Error(1)
}

func (m *MockEntitlementRepo) LatestMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, now time.Time) ([]types.Movie, error) {
	args := m.Called(ctx, userID, genreID, limit, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Movie), args.Error(1)
}

func (m *MockEntitlementRepo) PopularMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, excludeIDs []int64, now time.Time) ([]types.Movie, error) {
	args := m.Called(ctx, userID, genreID, limit, excludeIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Movie), args.Error(1)
}

var testInstant = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo EntitlementRepository) *EntitlementServiceImpl {
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEntitlementService(repo, types.FixedClock{Instant: testInstant}, logger)
}

func TestGetGenres_NoEntitlement(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(false, nil)

	genres, err := svc.GetGenres(context.Background(), userID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	assert.Nil(t, genres)
	repo.AssertNotCalled(t, "GenresForUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetGenres_ReturnsEntitledGenres(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	expected := []types.Genre{
		{ID: 1, Name: "Action"},
		{ID: 4, Name: "Drama"},
	}
	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(true, nil)
	repo.On("GenresForUser", mock.Anything, userID, testInstant).Return(expected, nil)

	genres, err := svc.GetGenres(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, expected, genres)
	repo.AssertExpectations(t)
}

func TestGetGenreDetail_UnknownGenre(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(true, nil)
	repo.On("GenreForUser", mock.Anything, userID, int64(99), testInstant).
		Return(nil, types.ErrNotFound)
	repo.On("LatestMovies", mock.Anything, userID, int64(99), sublistLimit, testInstant).
		Return([]types.Movie{}, nil).Maybe()

	detail, err := svc.GetGenreDetail(context.Background(), userID, 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Nil(t, detail)
}

func TestGetGenreDetail_PopularExcludesLatest(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	latest := []types.Movie{{ID: 10, Title: "Newest"}, {ID: 11, Title: "Newer"}}
	popular := []types.Movie{{ID: 3, Title: "Classic"}}

	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(true, nil)
	repo.On("GenreForUser", mock.Anything, userID, int64(1), testInstant).
		Return(&types.Genre{ID: 1, Name: "Action"}, nil)
	repo.On("LatestMovies", mock.Anything, userID, int64(1), sublistLimit, testInstant).
		Return(latest, nil)
	repo.On("PopularMovies", mock.Anything, userID, int64(1), sublistLimit, []int64{10, 11}, testInstant).
		Return(popular, nil)

	detail, err := svc.GetGenreDetail(context.Background(), userID, 1)

	require.NoError(t, err)
	assert.Equal(t, "Action", detail.Name)
	assert.Equal(t, latest, detail.Latest)
	assert.Equal(t, popular, detail.Popular)
	repo.AssertExpectations(t)
}

func TestAuthorize_UnauthorizedBeforeNotFound(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	// A lapsed subscriber asking for an unknown genre must hear
	// "unauthorized", never "not found".
	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(false, nil)

	err := svc.Authorize(context.Background(), userID, 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	repo.AssertNotCalled(t, "GenreForUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorize_GenreOutsidePlans(t *testing.T) {
	repo := new(MockEntitlementRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	repo.On("HasEntitlement", mock.Anything, userID, testInstant).Return(true, nil)
	repo.On("GenreForUser", mock.Anything, userID, int64(5), testInstant).
		Return(nil, types.ErrNotFound)

	err := svc.Authorize(context.Background(), userID, 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
