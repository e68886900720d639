package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/watchly/catalog-api/config"
	"github.com/watchly/catalog-api/internal/types"
)

// --- Mocks for Dependencies ---

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) Register(ctx context.Context, params RegisterParams, now time.Time) (*types.UserProfile, error) {
	args := m.Called(ctx, params, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockAuthRepo) ValidateCredentials(ctx context.Context, email, password string) (*types.UserProfile, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

var testInstant = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var testJWTConfig = config.JWTConfig{
	SecretKey: "test-secret",
	Issuer:    "watchly-test",
	Audience:  "watchly-app",
	Expiry:    time.Hour,
}

func newTestService(repo AuthRepo) *AuthServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, testJWTConfig, types.FixedClock{Instant: testInstant}, logger)
}

func TestRegister_IssuesValidToken(t *testing.T) {
	repo := new(MockAuthRepo)
	svc := newTestService(repo)

	user := &types.UserProfile{
		ID:          uuid.New(),
		Email:       "new@example.com",
		DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.On("Register", mock.Anything, mock.Anything, testInstant).Return(user, nil)

	token, err := svc.Register(context.Background(), RegisterParams{
		Email:       user.Email,
		Password:    "hunter22",
		DateOfBirth: user.DateOfBirth,
	})

	require.NoError(t, err)

	claims := &types.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTConfig.SecretKey), nil
	}, jwt.WithTimeFunc(func() time.Time { return testInstant }))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, testJWTConfig.Issuer, claims.Issuer)
	assert.Equal(t, testInstant.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestRegister_EmailTaken(t *testing.T) {
	repo := new(MockAuthRepo)
	svc := newTestService(repo)

	repo.On("Register", mock.Anything, mock.Anything, testInstant).
		Return(nil, types.ErrConflict)

	_, err := svc.Register(context.Background(), RegisterParams{Email: "dupe@example.com", Password: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflict))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := new(MockAuthRepo)
	svc := newTestService(repo)

	repo.On("ValidateCredentials", mock.Anything, "who@example.com", "wrong").
		Return(nil, types.ErrNotFound)

	_, err := svc.Login(context.Background(), "who@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestParseDateOfBirth(t *testing.T) {
	dob, err := ParseDateOfBirth("1990-07-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 7, 15, 0, 0, 0, 0, time.UTC), dob)

	_, err = ParseDateOfBirth("15/07/1990")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}
