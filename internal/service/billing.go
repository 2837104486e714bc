package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"postify/internal/config"
	"postify/internal/lib/sl"
	"postify/internal/metrics"
	"postify/internal/model"
	"postify/internal/repository"
)

// MaxWebhookBodyBytes caps the webhook payload read from the request.
const MaxWebhookBodyBytes = int64(65536)

const (
	metadataUserID = "userId"
	metadataPlan   = "plan"
)

var (
	// ErrWebhookSignature is returned when the Stripe-Signature header does not verify
	ErrWebhookSignature = errors.New("webhook signature verification failed")

	// ErrWebhookPayload is returned when a verified event carries an unusable object
	ErrWebhookPayload = errors.New("invalid webhook payload")

	// ErrBillingDisabled is returned when Stripe keys are not configured
	ErrBillingDisabled = errors.New("billing not configured")
)

// StripeClient is the set of Stripe calls billing makes.
type StripeClient interface {
	CreateCustomer(ctx context.Context, email string, userID int64) (string, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// stripeAPI calls the live API through the package-level stripe-go clients.
type stripeAPI struct{}

// NewStripeClient sets the global API key and returns the live client.
func NewStripeClient(secretKey string) StripeClient {
	stripe.Key = secretKey
	return stripeAPI{}
}

func (stripeAPI) CreateCustomer(ctx context.Context, email string, userID int64) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			metadataUserID: strconv.FormatInt(userID, 10),
		},
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (stripeAPI) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (string, error) {
	params.Context = ctx
	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (stripeAPI) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := portal.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// BillingService sells paid plans through Stripe and feeds webhook events
// into SubscriptionService.
type BillingService struct {
	stripe        StripeClient
	subscriptions *SubscriptionService
	userRepo      repository.UserRepository
	webhookSecret string
	frontendURL   string
	prices        map[model.Plan]int64
	log           *slog.Logger
}

func NewBillingService(
	client StripeClient,
	subscriptions *SubscriptionService,
	userRepo repository.UserRepository,
	cfg *config.Config,
	log *slog.Logger,
) *BillingService {
	return &BillingService{
		stripe:        client,
		subscriptions: subscriptions,
		userRepo:      userRepo,
		webhookSecret: cfg.StripeWebhookSecret,
		frontendURL:   cfg.FrontendURL,
		prices: map[model.Plan]int64{
			model.PlanBasic:   cfg.BasicPriceCents,
			model.PlanPremium: cfg.PremiumPriceCents,
		},
		log: log.With(slog.String("component", "billing_service")),
	}
}

// Checkout opens a subscription checkout for plan and returns its URL.
func (s *BillingService) Checkout(ctx context.Context, userID int64, plan model.Plan) (*model.CheckoutResponse, error) {
	if s.stripe == nil {
		return nil, ErrBillingDisabled
	}
	if !plan.Paid() {
		return nil, model.ErrInvalidPlan
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	planID := string(plan)
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(planProductName(plan)),
						Description: stripe.String(planDescription(plan)),
					},
					UnitAmount: stripe.Int64(s.prices[plan]),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/dashboard?success=true&plan=%s", s.frontendURL, planID)),
		CancelURL:  stripe.String(s.frontendURL + "/pricing"),
		Metadata: map[string]string{
			metadataUserID: strconv.FormatInt(userID, 10),
			metadataPlan:   planID,
		},
	}

	url, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.log.Info("checkout session created", slog.Int64("user_id", userID), slog.String("plan", planID))
	return &model.CheckoutResponse{URL: url}, nil
}

// Portal returns a billing portal URL for a user that has paid before.
func (s *BillingService) Portal(ctx context.Context, userID int64) (*model.CheckoutResponse, error) {
	if s.stripe == nil {
		return nil, ErrBillingDisabled
	}
	sub, err := s.subscriptions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		return nil, model.ErrNoBillingAccount
	}

	url, err := s.stripe.CreatePortalSession(ctx, *sub.StripeCustomerID, s.frontendURL+"/dashboard")
	if err != nil {
		return nil, fmt.Errorf("create portal session: %w", err)
	}
	return &model.CheckoutResponse{URL: url}, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if id := user.Subscription.StripeCustomerID; id != nil && *id != "" {
		return *id, nil
	}

	customerID, err := s.stripe.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.subscriptions.AttachCustomer(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("attach stripe customer: %w", err)
	}
	return customerID, nil
}

// HandleWebhook verifies a Stripe event and applies it to the subscription state.
// Event types without a mapping are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return ErrBillingDisabled
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		s.log.Warn("webhook signature failed", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return ErrWebhookSignature
	}

	eventType := string(event.Type)
	err = s.dispatch(ctx, event)
	switch {
	case errors.Is(err, errEventIgnored):
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return nil
	case err != nil:
		metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
		s.log.Error("webhook event failed", slog.String("type", eventType), slog.String("id", event.ID), sl.Err(err))
		return err
	}

	metrics.WebhookEvents.WithLabelValues(eventType, "applied").Inc()
	return nil
}

var errEventIgnored = errors.New("event ignored")

func (s *BillingService) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("%w: %v", ErrWebhookPayload, err)
		}
		if sess.Mode != stripe.CheckoutSessionModeSubscription {
			return errEventIgnored
		}
		completed, err := checkoutFromSession(&sess)
		if err != nil {
			return err
		}
		return s.subscriptions.ApplyCheckout(ctx, completed)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%w: %v", ErrWebhookPayload, err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return errEventIgnored
		}
		if event.Type == "invoice.payment_succeeded" {
			return s.subscriptions.MarkPaymentSucceeded(ctx, inv.Subscription.ID)
		}
		return s.subscriptions.MarkPaymentFailed(ctx, inv.Subscription.ID)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: %v", ErrWebhookPayload, err)
		}
		return s.subscriptions.Cancel(ctx, sub.ID)

	default:
		return errEventIgnored
	}
}

func checkoutFromSession(sess *stripe.CheckoutSession) (model.CheckoutCompleted, error) {
	userID, err := strconv.ParseInt(sess.Metadata[metadataUserID], 10, 64)
	if err != nil || userID <= 0 {
		return model.CheckoutCompleted{}, fmt.Errorf("%w: missing %s metadata", ErrWebhookPayload, metadataUserID)
	}
	plan, ok := model.ParsePlan(sess.Metadata[metadataPlan])
	if !ok || !plan.Paid() {
		return model.CheckoutCompleted{}, fmt.Errorf("%w: %w", ErrWebhookPayload, model.ErrInvalidPlan)
	}

	completed := model.CheckoutCompleted{UserID: userID, Plan: plan}
	if sess.Customer != nil {
		completed.StripeCustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		completed.StripeSubscriptionID = sess.Subscription.ID
		if sess.Subscription.CurrentPeriodEnd > 0 {
			end := time.Unix(sess.Subscription.CurrentPeriodEnd, 0).UTC()
			completed.CurrentPeriodEnd = &end
		}
	}
	return completed, nil
}

func planProductName(p model.Plan) string {
	switch p {
	case model.PlanPremium:
		return "Postify Premium Plan"
	default:
		return "Postify Basic Plan"
	}
}

func planDescription(p model.Plan) string {
	if q := p.Quota(); q != model.UnlimitedPosts {
		return fmt.Sprintf("%d posts per month", q)
	}
	return "Unlimited posts per month"
}
