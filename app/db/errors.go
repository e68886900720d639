package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/watchly/catalog-api/internal/types"
)

// constraintFields translates Postgres constraint names into the field a
// caller can act on, so Conflict messages never leak constraint language.
var constraintFields = map[string]string{
	"users_email_key":                    "email",
	"subscriptions_order_id_key":         "order_id",
	"subscriptions_one_pending_per_user": "subscription",
	"subscriptions_one_active_per_user":  "subscription",
}

// TranslateError maps driver-level failures onto the typed taxonomy:
// unique violations become ErrConflict with a field name, connection
// failures become ErrTransient. Anything else passes through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			field := constraintFields[pgErr.ConstraintName]
			if field == "" {
				field = pgErr.ConstraintName
			}
			return fmt.Errorf("%s already taken: %w", field, types.ErrConflict)
		case pgErr.Code == "23503":
			// FK violation: the referenced user or plan row is gone.
			return fmt.Errorf("referenced record does not exist: %w", types.ErrNotFound)
		case strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("database connection failure: %w", types.ErrTransient)
		}
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("database timeout: %w", types.ErrTransient)
	}
	return err
}
