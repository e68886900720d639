package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	// Register creates the user and the initial free subscription in one
	// transaction; if either step fails, neither persists.
	// Returns types.ErrConflict when the email is already taken.
	Register(ctx context.Context, params RegisterParams, now time.Time) (*types.UserProfile, error)

	// ValidateCredentials returns the user when email+password match,
	// types.ErrNotFound otherwise (same error for unknown email and bad
	// password).
	ValidateCredentials(ctx context.Context, email, password string) (*types.UserProfile, error)

	// GetUserByID returns types.ErrNotFound when the user doesn't exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
}

type PostgresAuthRepo struct {
	logger        *slog.Logger
	pgpool        database.Pool
	subscriptions SubscriptionCreator
}

func NewPostgresAuthRepo(pgpool database.Pool, subscriptions SubscriptionCreator, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger:        logger,
		pgpool:        pgpool,
		subscriptions: subscriptions,
	}
}

func (r *PostgresAuthRepo) Register(ctx context.Context, params RegisterParams, now time.Time) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "Register", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Register"), slog.String("email", params.Email))
	l.DebugContext(ctx, "Registering user")

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("failed to begin registration transaction: %w", database.TranslateError(err))
	}
	defer tx.Rollback(ctx)

	var user types.UserProfile
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, date_of_birth, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, email, date_of_birth, first_name, last_name, created_at`,
		params.Email, string(hashed), params.DateOfBirth, params.FirstName, params.LastName, now,
	).Scan(&user.ID, &user.Email, &user.DateOfBirth, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		err = database.TranslateError(err)
		l.WarnContext(ctx, "User insert failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Initial free grant rides the same transaction.
	_, err = r.subscriptions.CreateGrant(ctx, tx, user.ID, FreePlanID, FreePlanDays, now)
	if err != nil {
		l.ErrorContext(ctx, "Initial subscription grant failed, rolling back", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Initial grant failed")
		return nil, fmt.Errorf("failed to grant initial subscription: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("failed to commit registration: %w", database.TranslateError(err))
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return &user, nil
}

func (r *PostgresAuthRepo) ValidateCredentials(ctx context.Context, email, password string) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "ValidateCredentials", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ValidateCredentials"), slog.String("email", email))

	var user types.UserProfile
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, email, password_hash, date_of_birth, first_name, last_name, created_at
		FROM users
		WHERE lower(email) = lower($1)`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DateOfBirth, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "Unknown email")
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("invalid credentials: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user: %w", database.TranslateError(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		span.SetStatus(codes.Error, "Invalid password")
		return nil, fmt.Errorf("invalid credentials: %w", types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Credentials valid")
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var user types.UserProfile
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, email, date_of_birth, first_name, last_name, created_at
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.DateOfBirth, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &user, nil
}
