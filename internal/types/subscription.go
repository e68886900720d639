package types

import (
	"time"

	"github.com/google/uuid"
)

// Subscription status lifecycle: pending -> active -> cancelled.
// Records are never deleted; closing a subscription is a status flip.
// A cancelled subscription keeps granting access until its recorded
// expiry. Superseded rows were replaced by a newer checkout or
// activation and never grant access again.
const (
	SubscriptionStatusPending    = "pending"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusSuperseded = "superseded"
)

type Subscription struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	PlanID    int64      `json:"plan_id"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	RenewsAt  *time.Time `json:"renews_at,omitempty"`
	OrderID   *string    `json:"order_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Plan      *Plan      `json:"plan,omitempty"`
}

// IsOpen reports whether the subscription still counts against the
// one-pending/one-active policy.
func (s *Subscription) IsOpen() bool {
	return s.Status == SubscriptionStatusPending || s.Status == SubscriptionStatusActive
}
