package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/watchly/catalog-api/app/observability/metrics"
	"github.com/watchly/catalog-api/internal/api/plan"
	"github.com/watchly/catalog-api/internal/types"
)

var _ SubscriptionService = (*SubscriptionServiceImpl)(nil)

// SubscriptionService is the lifecycle manager: checkout sessions, order
// confirmation, cancellation and the current-subscription view.
type SubscriptionService interface {
	// Checkout opens a provider session for a purchasable plan and records
	// a pending subscription carrying the session id.
	Checkout(ctx context.Context, userID uuid.UUID, planID int64) (*CheckoutResponse, error)

	// VerifyCheckout confirms the session and promotes the pending
	// subscription to active. Safe to retry.
	VerifyCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*types.Subscription, error)

	// SetStatusByOrder flips the subscription tied to the order id.
	// Repeating a transition the subscription already made is a no-op.
	SetStatusByOrder(ctx context.Context, orderID, status string) (*types.Subscription, error)

	// Create inserts a subscription directly, bypassing checkout. Used for
	// grants and administrative flows.
	Create(ctx context.Context, userID uuid.UUID, planID int64, opts CreateOptions) (*types.Subscription, error)

	// Cancel cancels the user's subscription by id. A subscription that
	// doesn't exist or belongs to someone else reports not found.
	Cancel(ctx context.Context, userID, subID uuid.UUID) (*types.Subscription, error)

	// Current returns the user's open subscription with its plan.
	Current(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
}

type SubscriptionServiceImpl struct {
	logger   *slog.Logger
	repo     SubscriptionRepository
	plans    plan.PlanRepository
	provider CheckoutProvider
	clock    types.Clock
}

func NewSubscriptionService(repo SubscriptionRepository, plans plan.PlanRepository, provider CheckoutProvider, clock types.Clock, logger *slog.Logger) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{
		logger:   logger,
		repo:     repo,
		plans:    plans,
		provider: provider,
		clock:    clock,
	}
}

func (s *SubscriptionServiceImpl) Checkout(ctx context.Context, userID uuid.UUID, planID int64) (*CheckoutResponse, error) {
	l := s.logger.With(slog.String("method", "Checkout"), slog.String("userID", userID.String()), slog.Int64("planID", planID))
	l.DebugContext(ctx, "Creating checkout session")

	start := time.Now()
	m := metrics.Get()
	defer func() {
		m.CheckoutDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()
	m.CheckoutRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int64("plan.id", planID)))

	p, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		l.WarnContext(ctx, "Plan lookup failed", slog.Any("error", err))
		return nil, err
	}
	if p.Price <= 0 {
		return nil, fmt.Errorf("plan %d is not purchasable: %w", planID, types.ErrInvalidArgument)
	}

	sessionID, err := s.provider.CreateSession(ctx, userID, p)
	if err != nil {
		l.ErrorContext(ctx, "Provider session creation failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create checkout session: %w", types.ErrTransient)
	}

	_, err = s.Create(ctx, userID, planID, CreateOptions{
		Status:  types.SubscriptionStatusPending,
		OrderID: &sessionID,
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Checkout session created", slog.String("sessionID", sessionID))
	return &CheckoutResponse{ID: sessionID}, nil
}

func (s *SubscriptionServiceImpl) VerifyCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*types.Subscription, error) {
	l := s.logger.With(slog.String("method", "VerifyCheckout"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Verifying checkout session")

	sub, err := s.repo.GetByOrderID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		// Do not leak that the session exists at all.
		return nil, fmt.Errorf("no subscription for order: %w", types.ErrNotFound)
	}

	return s.SetStatusByOrder(ctx, sessionID, types.SubscriptionStatusActive)
}

func (s *SubscriptionServiceImpl) SetStatusByOrder(ctx context.Context, orderID, status string) (*types.Subscription, error) {
	l := s.logger.With(slog.String("method", "SetStatusByOrder"), slog.String("status", status))

	sub, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if sub.Status == status {
		l.DebugContext(ctx, "Status already applied, nothing to do", slog.String("subscriptionID", sub.ID.String()))
		return sub, nil
	}

	now := s.clock.Now()
	switch status {
	case types.SubscriptionStatusActive:
		p, err := s.plans.FindByID(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		// The paid period starts at confirmation, not at checkout.
		expiresAt := now.AddDate(0, 0, p.DurationDays)
		renewsAt := expiresAt
		activated, err := s.repo.Activate(ctx, sub.ID, sub.UserID, expiresAt, &renewsAt, now)
		if err != nil {
			return nil, err
		}
		l.InfoContext(ctx, "Subscription activated",
			slog.String("subscriptionID", activated.ID.String()),
			slog.Time("expiresAt", activated.ExpiresAt))
		return activated, nil
	case types.SubscriptionStatusCancelled:
		return s.repo.Cancel(ctx, sub.ID, now)
	default:
		return nil, fmt.Errorf("cannot transition subscription to %q: %w", status, types.ErrInvalidArgument)
	}
}

func (s *SubscriptionServiceImpl) Create(ctx context.Context, userID uuid.UUID, planID int64, opts CreateOptions) (*types.Subscription, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("userID", userID.String()), slog.Int64("planID", planID))

	p, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	days := p.DurationDays
	if opts.OverrideDays > 0 {
		days = opts.OverrideDays
	}
	status := opts.Status
	if status == "" {
		status = types.SubscriptionStatusPending
	}

	now := s.clock.Now()
	params := CreateParams{
		UserID:    userID,
		PlanID:    planID,
		Status:    status,
		ExpiresAt: now.AddDate(0, 0, days),
		OrderID:   opts.OrderID,
	}
	if status == types.SubscriptionStatusActive {
		renewsAt := params.ExpiresAt
		params.RenewsAt = &renewsAt
	}

	sub, err := s.repo.Create(ctx, params, now)
	if err != nil {
		l.ErrorContext(ctx, "Subscription creation failed", slog.Any("error", err))
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionServiceImpl) Cancel(ctx context.Context, userID, subID uuid.UUID) (*types.Subscription, error) {
	l := s.logger.With(slog.String("method", "Cancel"), slog.String("userID", userID.String()), slog.String("subscriptionID", subID.String()))

	sub, err := s.repo.FindForUser(ctx, subID, userID)
	if err != nil {
		return nil, err
	}
	if !sub.IsOpen() {
		return nil, fmt.Errorf("subscription already closed: %w", types.ErrConflict)
	}

	cancelled, err := s.repo.Cancel(ctx, sub.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "Subscription cancelled")
	return cancelled, nil
}

func (s *SubscriptionServiceImpl) Current(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	return s.repo.CurrentForUser(ctx, userID)
}
