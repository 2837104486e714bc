package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"postify/internal/model"
)

const subscriptionColumns = `plan, subscription_status, stripe_customer_id, stripe_subscription_id,
	current_period_end, posts_this_month, max_posts_per_month`

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM users WHERE id = $1`

	var sub model.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// ConsumePostQuota checks and increments the counter in one statement, so two
// concurrent publishes can never both take the last slot.
func (r *subscriptionRepository) ConsumePostQuota(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Subscription, error) {
	query := `
		UPDATE users
		SET posts_this_month = posts_this_month + 1, updated_at = NOW()
		WHERE id = $1
		  AND (max_posts_per_month = -1 OR posts_this_month < max_posts_per_month)
		RETURNING ` + subscriptionColumns

	var sub model.Subscription
	err := tx.GetContext(ctx, &sub, query, userID)
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume post quota: %w", err)
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}
	return nil, model.ErrQuotaExceeded
}

// ApplyCheckout activates a paid plan and starts a fresh month.
func (r *subscriptionRepository) ApplyCheckout(ctx context.Context, c model.CheckoutCompleted) error {
	query := `
		UPDATE users SET
			plan                   = $2,
			subscription_status    = 'active',
			stripe_customer_id     = NULLIF($3, ''),
			stripe_subscription_id = NULLIF($4, ''),
			current_period_end     = $5,
			max_posts_per_month    = $6,
			posts_this_month       = 0,
			updated_at             = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		c.UserID, c.Plan, c.StripeCustomerID, c.StripeSubscriptionID, c.CurrentPeriodEnd, c.Plan.Quota())
	if err != nil {
		return fmt.Errorf("apply checkout: %w", err)
	}
	return expectOne(result, model.ErrUserNotFound)
}

func (r *subscriptionRepository) SetStatusBySubscriptionID(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET subscription_status = $2, updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("set subscription status: %w", err)
	}
	return expectAny(result, model.ErrSubscriptionNotFound)
}

// CancelBySubscriptionID drops the user back to the free plan.
func (r *subscriptionRepository) CancelBySubscriptionID(ctx context.Context, subscriptionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			subscription_status = 'cancelled',
			plan                = 'free',
			max_posts_per_month = $2,
			posts_this_month    = 0,
			current_period_end  = NULL,
			updated_at          = NOW()
		WHERE stripe_subscription_id = $1
	`, subscriptionID, model.PlanFree.Quota())
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return expectAny(result, model.ErrSubscriptionNotFound)
}

func (r *subscriptionRepository) SetCustomerID(ctx context.Context, userID int64, customerID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`, userID, customerID)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return expectOne(result, model.ErrUserNotFound)
}

// ResetMonthlyCounters zeroes posts_this_month for every user with a non-zero count.
func (r *subscriptionRepository) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET posts_this_month = 0, updated_at = NOW() WHERE posts_this_month <> 0`)
	if err != nil {
		return 0, fmt.Errorf("reset monthly counters: %w", err)
	}
	return result.RowsAffected()
}

func expectOne(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows != 1 {
		return notFound
	}
	return nil
}

func expectAny(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
