package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchly/catalog-api/internal/types"
)

func TestTranslateError_UniqueViolation(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflict))
	assert.Contains(t, err.Error(), "email already taken")
}

func TestTranslateError_UnknownConstraintStillConflicts(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "23505", ConstraintName: "mystery_key"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflict))
}

func TestTranslateError_ForeignKeyViolationIsNotFound(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "23503", ConstraintName: "subscriptions_user_id_fkey"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestTranslateError_ConnectionFailureIsTransient(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "08006"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTransient))
}

func TestTranslateError_PassThrough(t *testing.T) {
	sentinel := errors.New("some other failure")
	assert.Equal(t, sentinel, TranslateError(sentinel))
	assert.NoError(t, TranslateError(nil))
}
