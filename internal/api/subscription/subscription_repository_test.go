package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchly/catalog-api/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresSubscriptionRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgresSubscriptionRepo(mockPool, logger), mockPool
}

func subscriptionRow(sub types.Subscription) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "plan_id", "status", "expires_at", "renews_at", "order_id", "created_at", "updated_at",
	}).AddRow(sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.ExpiresAt, sub.RenewsAt, sub.OrderID, sub.CreatedAt, sub.UpdatedAt)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_SupersedesOpenSubscriptionInOneTransaction(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	userID := uuid.New()
	orderID := "sess-42"

	params := CreateParams{
		UserID:    userID,
		PlanID:    1,
		Status:    types.SubscriptionStatusPending,
		ExpiresAt: now.AddDate(0, 0, 30),
		OrderID:   &orderID,
	}
	inserted := types.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    1,
		Status:    types.SubscriptionStatusPending,
		ExpiresAt: params.ExpiresAt,
		OrderID:   &orderID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE subscriptions`).
		WithArgs(types.SubscriptionStatusSuperseded, now, userID, types.SubscriptionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(userID, int64(1), types.SubscriptionStatusPending, params.ExpiresAt, params.RenewsAt, &orderID, now).
		WillReturnRows(subscriptionRow(inserted))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	sub, err := repo.Create(context.Background(), params, now)

	require.NoError(t, err)
	assert.Equal(t, inserted.ID, sub.ID)
	assert.Equal(t, types.SubscriptionStatusPending, sub.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestActivate_SupersedesOtherActiveFirst(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	userID := uuid.New()
	subID := uuid.New()
	expiresAt := now.AddDate(0, 0, 30)
	renewsAt := expiresAt

	activated := types.Subscription{
		ID:        subID,
		UserID:    userID,
		PlanID:    1,
		Status:    types.SubscriptionStatusActive,
		ExpiresAt: expiresAt,
		RenewsAt:  &renewsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE subscriptions`).
		WithArgs(types.SubscriptionStatusSuperseded, now, userID, types.SubscriptionStatusActive, subID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(types.SubscriptionStatusActive, expiresAt, &renewsAt, now, subID).
		WillReturnRows(subscriptionRow(activated))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	sub, err := repo.Activate(context.Background(), subID, userID, expiresAt, &renewsAt, now)

	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, expiresAt, sub.ExpiresAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCancel_KeepsExpiryClearsRenewal(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	subID := uuid.New()
	paidThrough := now.AddDate(0, 0, 12)

	cancelled := types.Subscription{
		ID:        subID,
		UserID:    uuid.New(),
		PlanID:    1,
		Status:    types.SubscriptionStatusCancelled,
		ExpiresAt: paidThrough,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mockPool.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(types.SubscriptionStatusCancelled, now, subID, types.SubscriptionStatusPending).
		WillReturnRows(subscriptionRow(cancelled))

	sub, err := repo.Cancel(context.Background(), subID, now)

	require.NoError(t, err)
	assert.Equal(t, paidThrough, sub.ExpiresAt)
	assert.Nil(t, sub.RenewsAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

// Cancelling a pending subscription clamps its provisional expiry so an
// order that was never confirmed cannot grant access later.
func TestCancel_ClampsPendingExpiry(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	subID := uuid.New()

	cancelled := types.Subscription{
		ID:        subID,
		UserID:    uuid.New(),
		PlanID:    1,
		Status:    types.SubscriptionStatusCancelled,
		ExpiresAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mockPool.ExpectQuery(`LEAST\(expires_at, \$2\)`).
		WithArgs(types.SubscriptionStatusCancelled, now, subID, types.SubscriptionStatusPending).
		WillReturnRows(subscriptionRow(cancelled))

	sub, err := repo.Cancel(context.Background(), subID, now)

	require.NoError(t, err)
	assert.Equal(t, now, sub.ExpiresAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCancel_MissingSubscription(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	subID := uuid.New()

	mockPool.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(types.SubscriptionStatusCancelled, now, subID, types.SubscriptionStatusPending).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Cancel(context.Background(), subID, now)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateGrant_SevenDayExpiry(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	userID := uuid.New()
	expiresAt := now.AddDate(0, 0, 7)

	granted := types.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    0,
		Status:    types.SubscriptionStatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mockPool.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(userID, int64(0), types.SubscriptionStatusActive, expiresAt, now).
		WillReturnRows(subscriptionRow(granted))

	sub, err := repo.CreateGrant(context.Background(), mockPool, userID, 0, 7, now)

	require.NoError(t, err)
	assert.Equal(t, expiresAt, sub.ExpiresAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetByOrderID_Unknown(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery(`FROM subscriptions`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByOrderID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
