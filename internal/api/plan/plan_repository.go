package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/internal/types"
)

var _ PlanRepository = (*PostgresPlanRepo)(nil)

type PlanRepository interface {
	// GetPlans returns the purchasable plans (price > 0) with their
	// granted genres, cheapest first.
	GetPlans(ctx context.Context) ([]types.Plan, error)

	// FindByID returns types.ErrNotFound when the plan doesn't exist.
	// Unlike GetPlans this also resolves the free tier, which the
	// lifecycle manager needs for duration lookups.
	FindByID(ctx context.Context, planID int64) (*types.Plan, error)
}

type PostgresPlanRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresPlanRepo(pgpool database.Pool, logger *slog.Logger) *PostgresPlanRepo {
	return &PostgresPlanRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresPlanRepo) GetPlans(ctx context.Context) ([]types.Plan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "GetPlans", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "plans"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetPlans"))
	l.DebugContext(ctx, "Fetching purchasable plans")

	rows, err := r.pgpool.Query(ctx, `
		SELECT p.id, p.name, p.price, p.duration_days, g.id, g.name
		FROM plans p
		JOIN plan_genres pg ON pg.plan_id = p.id
		JOIN genres g ON g.id = pg.genre_id
		WHERE p.price > 0
		ORDER BY p.price ASC, p.id ASC, g.name ASC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching plans: %w", database.TranslateError(err))
	}
	defer rows.Close()

	var plans []types.Plan
	for rows.Next() {
		var planID int64
		var name string
		var price float64
		var durationDays int
		var genre types.Genre
		if err := rows.Scan(&planID, &name, &price, &durationDays, &genre.ID, &genre.Name); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		if len(plans) == 0 || plans[len(plans)-1].ID != planID {
			plans = append(plans, types.Plan{ID: planID, Name: name, Price: price, DurationDays: durationDays})
		}
		last := &plans[len(plans)-1]
		last.Genres = append(last.Genres, genre)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading plan rows: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Plans fetched")
	return plans, nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, planID int64) (*types.Plan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "FindByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "plans"),
		attribute.Int64("plan.id", planID),
	))
	defer span.End()

	var plan types.Plan
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, name, price, duration_days
		FROM plans
		WHERE id = $1`,
		planID,
	).Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DurationDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("plan %d not found: %w", planID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching plan: %w", database.TranslateError(err))
	}

	rows, err := r.pgpool.Query(ctx, `
		SELECT g.id, g.name
		FROM genres g
		JOIN plan_genres pg ON pg.genre_id = g.id
		WHERE pg.plan_id = $1
		ORDER BY g.name ASC`,
		planID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching plan genres: %w", database.TranslateError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var genre types.Genre
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan genre row: %w", err)
		}
		plan.Genres = append(plan.Genres, genre)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading genre rows: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	return &plan, nil
}
