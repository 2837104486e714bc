package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"postify/internal/lib/sl"
	"postify/internal/metrics"
	"postify/internal/model"
	"postify/internal/repository"
)

// SubscriptionService is the only writer of a user's plan, status and quota counter.
type SubscriptionService struct {
	repo repository.SubscriptionRepository
	log  *slog.Logger
}

func NewSubscriptionService(repo repository.SubscriptionRepository, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo: repo,
		log:  log.With(slog.String("component", "subscription_service")),
	}
}

// Get returns the caller's current plan and usage.
func (s *SubscriptionService) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	return s.repo.Get(ctx, userID)
}

// ConsumePublish takes one slot of the monthly quota inside tx.
// When tx rolls back the slot is returned with it.
func (s *SubscriptionService) ConsumePublish(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Subscription, error) {
	sub, err := s.repo.ConsumePostQuota(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, model.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
			s.log.Info("publish rejected by quota", slog.Int64("user_id", userID))
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) ApplyCheckout(ctx context.Context, c model.CheckoutCompleted) error {
	if !c.Plan.Paid() {
		return model.ErrInvalidPlan
	}
	if err := s.repo.ApplyCheckout(ctx, c); err != nil {
		return fmt.Errorf("apply checkout: %w", err)
	}
	s.log.Info("subscription activated",
		slog.Int64("user_id", c.UserID),
		slog.String("plan", string(c.Plan)),
		slog.String("subscription_id", c.StripeSubscriptionID),
	)
	return nil
}

func (s *SubscriptionService) MarkPaymentSucceeded(ctx context.Context, subscriptionID string) error {
	return s.setStatus(ctx, subscriptionID, model.StatusActive)
}

func (s *SubscriptionService) MarkPaymentFailed(ctx context.Context, subscriptionID string) error {
	return s.setStatus(ctx, subscriptionID, model.StatusInactive)
}

func (s *SubscriptionService) setStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	if subscriptionID == "" {
		return model.ErrSubscriptionNotFound
	}
	if err := s.repo.SetStatusBySubscriptionID(ctx, subscriptionID, status); err != nil {
		return err
	}
	s.log.Info("subscription status changed",
		slog.String("subscription_id", subscriptionID),
		slog.String("status", string(status)),
	)
	return nil
}

// Cancel moves the holder of subscriptionID back to the free plan.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return model.ErrSubscriptionNotFound
	}
	if err := s.repo.CancelBySubscriptionID(ctx, subscriptionID); err != nil {
		return err
	}
	s.log.Info("subscription cancelled", slog.String("subscription_id", subscriptionID))
	return nil
}

// ResetMonthly zeroes every user's monthly counter.
func (s *SubscriptionService) ResetMonthly(ctx context.Context) (int64, error) {
	n, err := s.repo.ResetMonthlyCounters(ctx)
	if err != nil {
		s.log.Error("monthly reset failed", sl.Err(err))
		return 0, err
	}
	metrics.QuotaResets.Inc()
	s.log.Info("monthly counters reset", slog.Int64("users", n))
	return n, nil
}

func (s *SubscriptionService) AttachCustomer(ctx context.Context, userID int64, customerID string) error {
	return s.repo.SetCustomerID(ctx, userID, customerID)
}
