package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/watchly/catalog-api/config"
	"github.com/watchly/catalog-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract for auth operations.
type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	jwtCfg config.JWTConfig
	clock  types.Clock
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, clock types.Clock, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: jwtCfg,
		clock:  clock,
	}
}

// Register creates the user plus their free-tier subscription and returns
// an access token.
func (s *AuthServiceImpl) Register(ctx context.Context, params RegisterParams) (string, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", params.Email))
	l.DebugContext(ctx, "Registering user")

	user, err := s.repo.Register(ctx, params, s.clock.Now())
	if err != nil {
		l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		return "", fmt.Errorf("error registering user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return s.issueToken(user)
}

// Login validates credentials and returns an access token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))
	l.DebugContext(ctx, "Authenticating user")

	user, err := s.repo.ValidateCredentials(ctx, email, password)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		return "", fmt.Errorf("error validating credentials: %w", err)
	}

	l.InfoContext(ctx, "User authenticated", slog.String("userID", user.ID.String()))
	return s.issueToken(user)
}

// GetUser returns the authenticated user's profile.
func (s *AuthServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "GetUser"), slog.String("userID", userID.String()))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

func (s *AuthServiceImpl) issueToken(user *types.UserProfile) (string, error) {
	now := s.clock.Now()
	claims := types.Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseDateOfBirth validates the ISO-8601 date carried by the register
// request.
func ParseDateOfBirth(value string) (time.Time, error) {
	dob, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date_of_birth must be YYYY-MM-DD: %w", types.ErrInvalidArgument)
	}
	return dob, nil
}
