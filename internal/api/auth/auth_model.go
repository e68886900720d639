package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	database "github.com/watchly/catalog-api/app/db"
	"github.com/watchly/catalog-api/internal/types"
)

// Registration grants the free tier automatically: plan 0, seven days.
const (
	FreePlanID   int64 = 0
	FreePlanDays       = 7
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DateOfBirth string  `json:"date_of_birth"` // ISO-8601 date, e.g. 2000-01-01
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterParams is the validated form handed to the repository.
type RegisterParams struct {
	Email       string
	Password    string
	DateOfBirth time.Time
	FirstName   *string
	LastName    *string
}

// SubscriptionCreator is the slice of the lifecycle manager the auth
// repository needs: granting the initial subscription inside the
// registration transaction.
type SubscriptionCreator interface {
	CreateGrant(ctx context.Context, q database.Querier, userID uuid.UUID, planID int64, days int, now time.Time) (*types.Subscription, error)
}
