package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"postify/internal/httputil"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/service"
	"postify/internal/transport/http/middleware"
)

type BillingHandler struct {
	billingService BillingService
	log            *slog.Logger
}

func NewBillingHandler(billingService BillingService, log *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		log:            log.With(slog.String("component", "billing_handler")),
	}
}

// Checkout handles GET /stripe/checkout?plan=basic|premium
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	plan, ok := model.ParsePlan(r.URL.Query().Get("plan"))
	if !ok || !plan.Paid() {
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidPlan, "Invalid plan")
		return
	}

	resp, err := h.billingService.Checkout(r.Context(), userID, plan)
	if err != nil {
		if errors.Is(err, model.ErrInvalidPlan) {
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidPlan, "Invalid plan")
			return
		}
		h.log.Error("checkout failed", slog.Int64("user_id", userID), slog.String("plan", string(plan)), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Portal handles POST /stripe/portal
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	resp, err := h.billingService.Portal(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNoBillingAccount) {
			httputil.WriteBadRequest(w, "No billing account found")
			return
		}
		h.log.Error("portal failed", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Webhook handles POST /stripe/webhook. Authenticated by signature only.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, httputil.ErrCodeBadRequest, "Request body too large")
		return
	}

	err = h.billingService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookSignature):
			httputil.WriteBadRequest(w, "Invalid signature")
		case errors.Is(err, service.ErrWebhookPayload):
			httputil.WriteBadRequest(w, "Invalid webhook payload")
		default:
			h.log.Error("webhook handling failed", sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
