package model

import (
	"errors"
	"time"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// UnlimitedPosts is the maxPostsPerMonth sentinel for plans without a ceiling.
const UnlimitedPosts = -1

var planQuotas = map[Plan]int{
	PlanFree:    3,
	PlanBasic:   20,
	PlanPremium: UnlimitedPosts,
}

// Quota returns the monthly published-post ceiling of p.
// Unknown plans get the free quota.
func (p Plan) Quota() int {
	if q, ok := planQuotas[p]; ok {
		return q
	}
	return planQuotas[PlanFree]
}

// Paid reports whether p is sold through checkout.
func (p Plan) Paid() bool {
	return p == PlanBasic || p == PlanPremium
}

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	_, ok := planQuotas[p]
	return p, ok
}

// Subscription is the billing and quota state stored on each user.
type Subscription struct {
	Plan                 Plan               `db:"plan" json:"plan"`
	Status               SubscriptionStatus `db:"subscription_status" json:"status"`
	StripeCustomerID     *string            `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"-"`
	CurrentPeriodEnd     *time.Time         `db:"current_period_end" json:"current_period_end,omitempty"`
	PostsThisMonth       int                `db:"posts_this_month" json:"posts_this_month"`
	MaxPostsPerMonth     int                `db:"max_posts_per_month" json:"max_posts_per_month"`
}

// NewFreeSubscription is the state of a freshly registered account.
func NewFreeSubscription() Subscription {
	return Subscription{
		Plan:             PlanFree,
		Status:           StatusInactive,
		PostsThisMonth:   0,
		MaxPostsPerMonth: PlanFree.Quota(),
	}
}

// CanPublish reports whether one more post may be published this month.
func (s Subscription) CanPublish() bool {
	if s.MaxPostsPerMonth == UnlimitedPosts {
		return true
	}
	return s.PostsThisMonth < s.MaxPostsPerMonth
}

// Remaining returns how many publishes are left, or UnlimitedPosts.
func (s Subscription) Remaining() int {
	if s.MaxPostsPerMonth == UnlimitedPosts {
		return UnlimitedPosts
	}
	if left := s.MaxPostsPerMonth - s.PostsThisMonth; left > 0 {
		return left
	}
	return 0
}

// CheckoutCompleted carries the fields applied when a paid checkout finishes.
type CheckoutCompleted struct {
	UserID               int64
	Plan                 Plan
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
}

// CheckoutResponse is returned when a checkout or portal session is created.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// QuotaExceededMessage is shown when the monthly ceiling is reached.
const QuotaExceededMessage = "You have reached your monthly post limit. Please upgrade your plan."

const (
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeInvalidPlan   = "INVALID_PLAN"
)

var (
	// ErrQuotaExceeded is returned when publishing would pass the monthly ceiling
	ErrQuotaExceeded = errors.New("monthly post quota exceeded")

	// ErrInvalidPlan is returned for unknown or unpurchasable plans
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrSubscriptionNotFound is returned when no user holds a Stripe subscription id
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNoBillingAccount is returned when a user has no Stripe customer yet
	ErrNoBillingAccount = errors.New("no billing account")
)
