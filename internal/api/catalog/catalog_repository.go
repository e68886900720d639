package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/internal/types"
)

var _ CatalogRepository = (*PostgresCatalogRepo)(nil)

type CatalogRepository interface {
	// ListMovies pages through a genre's movies visible to the user.
	// orderColumn must come from the service's allow-list; it is
	// interpolated, not bound.
	ListMovies(ctx context.Context, userID uuid.UUID, genreID int64, orderColumn string, offset, limit int, now time.Time) ([]types.Movie, error)
}

type PostgresCatalogRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresCatalogRepo(pgpool database.Pool, logger *slog.Logger) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresCatalogRepo) ListMovies(ctx context.Context, userID uuid.UUID, genreID int64, orderColumn string, offset, limit int, now time.Time) ([]types.Movie, error) {
	ctx, span := otel.Tracer("CatalogRepo").Start(ctx, "ListMovies", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "movies"),
		attribute.Int64("genre.id", genreID),
		attribute.String("catalog.order_by", orderColumn),
		attribute.Int("catalog.offset", offset),
		attribute.Int("catalog.limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListMovies"), slog.Int64("genreID", genreID))
	l.DebugContext(ctx, "Listing movies", slog.String("orderColumn", orderColumn),
		slog.Int("offset", offset), slog.Int("limit", limit))

	// The id tie-break keeps pages stable when the sort column repeats.
	query := fmt.Sprintf(`
		SELECT m.id, m.title, m.release_date, m.popularity, m.rating, m.adult
		FROM movies m
		JOIN movie_genres mg ON mg.movie_id = m.id
		WHERE mg.genre_id = $3
		  AND (m.adult = FALSE OR EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = $1 AND u.date_of_birth <= ($2::timestamptz - INTERVAL '18 years')
		  ))
		ORDER BY m.%s ASC NULLS LAST, m.id ASC
		OFFSET $4 LIMIT $5`, orderColumn)

	rows, err := r.pgpool.Query(ctx, query, userID, now, genreID, offset, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing movies: %w", database.TranslateError(err))
	}
	defer rows.Close()

	var movies []types.Movie
	for rows.Next() {
		var m types.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseDate, &m.Popularity, &m.Rating, &m.Adult); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed reading movie rows: %w", database.TranslateError(err))
	}

	span.SetStatus(codes.Ok, "Movies listed")
	return movies, nil
}
