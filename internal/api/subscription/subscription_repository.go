package subscription

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

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/internal/types"
)

var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

type SubscriptionRepository interface {
	// CreateGrant inserts an active subscription on the given querier,
	// which may be an open transaction owned by the caller.
	CreateGrant(ctx context.Context, q database.Querier, userID uuid.UUID, planID int64, days int, now time.Time) (*types.Subscription, error)

	// Create inserts a subscription row, cancelling any open subscription
	// with the same status for the user inside the same transaction so the
	// one-open-per-status policy holds.
	Create(ctx context.Context, params CreateParams, now time.Time) (*types.Subscription, error)

	// GetByOrderID returns types.ErrNotFound when no subscription carries
	// the order id.
	GetByOrderID(ctx context.Context, orderID string) (*types.Subscription, error)

	// Activate promotes the subscription to active with the given expiry,
	// cancelling any other active subscription of the user in the same
	// transaction.
	Activate(ctx context.Context, subID, userID uuid.UUID, expiresAt time.Time, renewsAt *time.Time, now time.Time) (*types.Subscription, error)

	// SetStatus flips a single row's status. Returns types.ErrNotFound
	// when the row doesn't exist.
	SetStatus(ctx context.Context, subID uuid.UUID, status string, now time.Time) (*types.Subscription, error)

	// FindForUser returns the subscription only when it belongs to the
	// user; types.ErrNotFound otherwise.
	FindForUser(ctx context.Context, subID, userID uuid.UUID) (*types.Subscription, error)

	// Cancel flips the row to cancelled, clearing renews_at. An active
	// row keeps expires_at so access runs until natural expiry; a pending
	// row's provisional expiry is clamped to now.
	Cancel(ctx context.Context, subID uuid.UUID, now time.Time) (*types.Subscription, error)

	// CurrentForUser returns the user's open subscription with its plan
	// attached, preferring active over pending; types.ErrNotFound when the
	// user has none.
	CurrentForUser(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
}

type PostgresSubscriptionRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresSubscriptionRepo(pgpool database.Pool, logger *slog.Logger) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const subscriptionColumns = `id, user_id, plan_id, status, expires_at, renews_at, order_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (*types.Subscription, error) {
	var sub types.Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.ExpiresAt,
		&sub.RenewsAt, &sub.OrderID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *PostgresSubscriptionRepo) CreateGrant(ctx context.Context, q database.Querier, userID uuid.UUID, planID int64, days int, now time.Time) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "CreateGrant", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.Int64("plan.id", planID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateGrant"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Granting subscription", slog.Int64("planID", planID), slog.Int("days", days))

	sub, err := scanSubscription(q.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan_id, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+subscriptionColumns,
		userID, planID, types.SubscriptionStatusActive, now.AddDate(0, 0, days), now,
	))
	if err != nil {
		err = database.TranslateError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to create subscription grant: %w", err)
	}

	span.SetStatus(codes.Ok, "Grant created")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) Create(ctx context.Context, params CreateParams, now time.Time) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.Int64("plan.id", params.PlanID),
		attribute.String("subscription.status", params.Status),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("userID", params.UserID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("failed to begin subscription transaction: %w", database.TranslateError(err))
	}
	defer tx.Rollback(ctx)

	// Supersede the user's open subscription of the same status so the
	// partial unique index never rejects the insert. Superseded rows
	// never entitle, unlike user-cancelled ones.
	_, err = tx.Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, renews_at = NULL, updated_at = $2
		WHERE user_id = $3 AND status = $4`,
		types.SubscriptionStatusSuperseded, now, params.UserID, params.Status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Supersede failed")
		return nil, fmt.Errorf("failed to supersede open subscription: %w", database.TranslateError(err))
	}

	sub, err := scanSubscription(tx.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan_id, status, expires_at, renews_at, order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+subscriptionColumns,
		params.UserID, params.PlanID, params.Status, params.ExpiresAt, params.RenewsAt, params.OrderID, now,
	))
	if err != nil {
		err = database.TranslateError(err)
		l.WarnContext(ctx, "Subscription insert failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("failed to commit subscription: %w", database.TranslateError(err))
	}

	l.InfoContext(ctx, "Subscription created", slog.String("subscriptionID", sub.ID.String()), slog.String("status", sub.Status))
	span.SetStatus(codes.Ok, "Subscription created")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) GetByOrderID(ctx context.Context, orderID string) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "GetByOrderID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
	))
	defer span.End()

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE order_id = $1`,
		orderID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Order not found")
			return nil, fmt.Errorf("no subscription for order: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) Activate(ctx context.Context, subID, userID uuid.UUID, expiresAt time.Time, renewsAt *time.Time, now time.Time) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Activate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", subID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Activate"), slog.String("subscriptionID", subID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("failed to begin activation transaction: %w", database.TranslateError(err))
	}
	defer tx.Rollback(ctx)

	// The user keeps at most one active subscription. The replaced one is
	// superseded, not cancelled: its access moves to the new plan.
	_, err = tx.Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, renews_at = NULL, updated_at = $2
		WHERE user_id = $3 AND status = $4 AND id <> $5`,
		types.SubscriptionStatusSuperseded, now, userID, types.SubscriptionStatusActive, subID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Supersede failed")
		return nil, fmt.Errorf("failed to supersede active subscription: %w", database.TranslateError(err))
	}

	sub, err := scanSubscription(tx.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = $1, expires_at = $2, renews_at = $3, updated_at = $4
		WHERE id = $5
		RETURNING `+subscriptionColumns,
		types.SubscriptionStatusActive, expiresAt, renewsAt, now, subID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("failed to activate subscription: %w", database.TranslateError(err))
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("failed to commit activation: %w", database.TranslateError(err))
	}

	l.InfoContext(ctx, "Subscription activated", slog.Time("expiresAt", sub.ExpiresAt))
	span.SetStatus(codes.Ok, "Subscription activated")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) SetStatus(ctx context.Context, subID uuid.UUID, status string, now time.Time) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "SetStatus", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", subID.String()),
		attribute.String("subscription.status", status),
	))
	defer span.End()

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+subscriptionColumns,
		status, now, subID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("failed to update subscription status: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Status updated")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) FindForUser(ctx context.Context, subID, userID uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", subID.String()),
	))
	defer span.End()

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1 AND user_id = $2`,
		subID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else's subscription looks identical to a missing one.
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) Cancel(ctx context.Context, subID uuid.UUID, now time.Time) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Cancel", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", subID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Cancel"), slog.String("subscriptionID", subID.String()))

	// An active subscription keeps its paid-through expiry, so access
	// survives until natural expiry. A pending one never entitled, so its
	// provisional expiry is clamped to now.
	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = $1,
		    renews_at = NULL,
		    expires_at = CASE WHEN status = $4 THEN LEAST(expires_at, $2) ELSE expires_at END,
		    updated_at = $2
		WHERE id = $3
		RETURNING `+subscriptionColumns,
		types.SubscriptionStatusCancelled, now, subID, types.SubscriptionStatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("failed to cancel subscription: %w", database.TranslateError(err))
	}

	l.InfoContext(ctx, "Subscription cancelled")
	span.SetStatus(codes.Ok, "Subscription cancelled")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) CurrentForUser(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "CurrentForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var sub types.Subscription
	var plan types.Plan
	err := r.pgpool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.plan_id, s.status, s.expires_at, s.renews_at, s.order_id, s.created_at, s.updated_at,
		       p.id, p.name, p.price, p.duration_days
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status IN ($2, $3)
		ORDER BY CASE s.status WHEN $3 THEN 0 ELSE 1 END, s.created_at DESC
		LIMIT 1`,
		userID, types.SubscriptionStatusPending, types.SubscriptionStatusActive,
	).Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.ExpiresAt, &sub.RenewsAt, &sub.OrderID, &sub.CreatedAt, &sub.UpdatedAt,
		&plan.ID, &plan.Name, &plan.Price, &plan.DurationDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "No open subscription")
			return nil, fmt.Errorf("no open subscription: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", database.TranslateError(err))
	}

	sub.Plan = &plan
	span.SetStatus(codes.Ok, "Subscription fetched")
	return &sub, nil
}
