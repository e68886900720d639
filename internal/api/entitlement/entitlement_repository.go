package entitlement

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

var _ EntitlementRepository = (*PostgresEntitlementRepo)(nil)

// EntitlementRepository answers what a user may see right now. Every
// query threads the user through the subscription -> plan -> genre chain
// and applies the adult gate against the user's date of birth.
type EntitlementRepository interface {
	// HasEntitlement reports whether the user holds a subscription that
	// still grants access: active, or cancelled with time remaining. The
	// expiry instant itself still counts.
	HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	// GenresForUser lists the genres the user's entitling subscriptions
	// unlock, alphabetically.
	GenresForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]types.Genre, error)

	// GenreForUser returns the genre only when the user's entitlements
	// reach it; types.ErrNotFound otherwise, whether the genre is missing
	// or merely outside the user's plans.
	GenreForUser(ctx context.Context, userID uuid.UUID, genreID int64, now time.Time) (*types.Genre, error)

	// LatestMovies returns the genre's most recent releases visible to the
	// user, newest first.
	LatestMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, now time.Time) ([]types.Movie, error)

	// PopularMovies returns the genre's most popular movies visible to the
	// user, skipping excludeIDs.
	PopularMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, excludeIDs []int64, now time.Time) ([]types.Movie, error)
}

type PostgresEntitlementRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresEntitlementRepo(pgpool database.Pool, logger *slog.Logger) *PostgresEntitlementRepo {
	return &PostgresEntitlementRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// entitledGenres resolves the user's reachable genre ids at the given
// instant. Shared by every entitlement-scoped query below. Cancelled
// subscriptions keep entitling until expires_at; superseded ones never
// do.
const entitledGenres = `
	SELECT DISTINCT pg.genre_id
	FROM subscriptions s
	JOIN plan_genres pg ON pg.plan_id = s.plan_id
	WHERE s.user_id = $1 AND s.status IN ('active', 'cancelled') AND s.expires_at >= $2`

// ageGate hides adult titles from viewers younger than eighteen at the
// query instant. $1 is the user id, $2 the instant.
const ageGate = `
	(m.adult = FALSE OR EXISTS (
		SELECT 1 FROM users u
		WHERE u.id = $1 AND u.date_of_birth <= ($2::timestamptz - INTERVAL '18 years')
	))`

func (r *PostgresEntitlementRepo) HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	ctx, span := otel.Tracer("EntitlementRepo").Start(ctx, "HasEntitlement", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var exists bool
	err := r.pgpool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = $1 AND s.status IN ('active', 'cancelled') AND s.expires_at >= $2
		)`,
		userID, now,
	).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return false, fmt.Errorf("database error checking subscription: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Checked")
	return exists, nil
}

func (r *PostgresEntitlementRepo) GenresForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]types.Genre, error) {
	ctx, span := otel.Tracer("EntitlementRepo").Start(ctx, "GenresForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "genres"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GenresForUser"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching entitled genres")

	rows, err := r.pgpool.Query(ctx, `
		SELECT g.id, g.name
		FROM genres g
		WHERE g.id IN (`+entitledGenres+`)
		ORDER BY g.name ASC`,
		userID, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching genres: %w", database.TranslateError(err))
	}
	defer rows.Close()

	var genres []types.Genre
	for rows.Next() {
		var g types.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan genre row: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading genre rows: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Genres fetched")
	return genres, nil
}

func (r *PostgresEntitlementRepo) GenreForUser(ctx context.Context, userID uuid.UUID, genreID int64, now time.Time) (*types.Genre, error) {
	ctx, span := otel.Tracer("EntitlementRepo").Start(ctx, "GenreForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "genres"),
		attribute.Int64("genre.id", genreID),
	))
	defer span.End()

	var g types.Genre
	err := r.pgpool.QueryRow(ctx, `
		SELECT g.id, g.name
		FROM genres g
		WHERE g.id = $3 AND g.id IN (`+entitledGenres+`)`,
		userID, now, genreID,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Genre not reachable")
			return nil, fmt.Errorf("genre %d not found: %w", genreID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching genre: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Genre fetched")
	return &g, nil
}

func (r *PostgresEntitlementRepo) LatestMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, now time.Time) ([]types.Movie, error) {
	ctx, span := otel.Tracer("EntitlementRepo").Start(ctx, "LatestMovies", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "movies"),
		attribute.Int64("genre.id", genreID),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT m.id, m.title, m.release_date, m.popularity, m.rating, m.adult
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE mg.genre_id = $3 AND m.release_date IS NOT NULL AND `+ageGate+`
		ORDER BY m.release_date DESC, m.id ASC
		LIMIT $4`,
		userID, now, genreID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching latest movies: %w", database.TranslateError(err))
	}
	defer rows.Close()

	movies, err := collectMovies(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Movies fetched")
	return movies, nil
}

func (r *PostgresEntitlementRepo) PopularMovies(ctx context.Context, userID uuid.UUID, genreID int64, limit int, excludeIDs []int64, now time.Time) ([]types.Movie, error) {
	ctx, span := otel.Tracer("EntitlementRepo").Start(ctx, "PopularMovies", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "movies"),
		attribute.Int64("genre.id", genreID),
	))
	defer span.End()

	if excludeIDs == nil {
		excludeIDs = []int64{}
	}

	rows, err := r.pgpool.Query(ctx, `
		SELECT m.id, m.title, m.release_date, m.popularity, m.rating, m.adult
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE mg.genre_id = $3 AND m.popularity IS NOT NULL AND NOT (m.id = ANY($5)) AND `+ageGate+`
		ORDER BY m.popularity DESC, m.id ASC
		LIMIT $4`,
		userID, now, genreID, limit, excludeIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching popular movies: %w", database.TranslateError(err))
	}
	defer rows.Close()

	movies, err := collectMovies(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Movies fetched")
	return movies, nil
}

func collectMovies(rows pgx.Rows) ([]types.Movie, error) {
	var movies []types.Movie
	for rows.Next() {
		var m types.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseDate, &m.Popularity, &m.Rating, &m.Adult); err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading movie rows: %w", database.TranslateError(err))
	}
	return movies, nil
}
