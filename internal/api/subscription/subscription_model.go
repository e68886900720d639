package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/watchly/catalog-api/internal/types"
)

// CheckoutRequest asks for a checkout session against a purchasable plan.
type CheckoutRequest struct {
	PlanID int64 `json:"plan_id"`
}

// CheckoutResponse carries the provider session id the client completes
// payment against and later verifies.
type CheckoutResponse struct {
	ID string `json:"id"`
}

// VerifyRequest confirms a previously created checkout session.
type VerifyRequest struct {
	ID string `json:"id"`
}

// CreateParams is the persisted shape of a new subscription row.
type CreateParams struct {
	UserID    uuid.UUID
	PlanID    int64
	Status    string
	ExpiresAt time.Time
	RenewsAt  *time.Time
	OrderID   *string
}

// CreateOptions tune Create beyond the plan defaults.
type CreateOptions struct {
	// OverrideDays replaces the plan's duration when > 0.
	OverrideDays int
	// Status defaults to pending when empty.
	Status string
	// OrderID ties the subscription to a checkout session.
	OrderID *string
}

// CheckoutProvider abstracts the payment provider that issues checkout
// sessions. The local provider mints opaque ids without contacting
// anything; a real gateway integration satisfies the same contract.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, userID uuid.UUID, plan *types.Plan) (string, error)
}

// LocalCheckoutProvider issues session ids locally. Payment is assumed to
// succeed out of band, after which the client calls verify.
type LocalCheckoutProvider struct{}

func NewLocalCheckoutProvider() *LocalCheckoutProvider {
	return &LocalCheckoutProvider{}
}

func (p *LocalCheckoutProvider) CreateSession(_ context.Context, _ uuid.UUID, _ *types.Plan) (string, error) {
	return uuid.NewString(), nil
}
