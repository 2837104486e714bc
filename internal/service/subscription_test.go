package service

import (
	"context"
	"errors"
	"testing"

	"postify/internal/lib/sl"
	"postify/internal/model"
)

func TestSubscriptionService_ApplyCheckout_RejectsFreePlan(t *testing.T) {
	repo := newMemorySubscriptions(model.NewFreeSubscription())
	svc := NewSubscriptionService(repo, sl.Discard())

	err := svc.ApplyCheckout(context.Background(), model.CheckoutCompleted{UserID: 1, Plan: model.PlanFree})

	if !errors.Is(err, model.ErrInvalidPlan) {
		t.Errorf("error = %v, want %v", err, model.ErrInvalidPlan)
	}
	if len(repo.appliedCheckout) != 0 {
		t.Error("repository should not be written for a free checkout")
	}
}

func TestSubscriptionService_ApplyCheckout_ResetsCounter(t *testing.T) {
	sub := model.NewFreeSubscription()
	sub.PostsThisMonth = 3
	repo := newMemorySubscriptions(sub)
	svc := NewSubscriptionService(repo, sl.Discard())

	err := svc.ApplyCheckout(context.Background(), model.CheckoutCompleted{UserID: 1, Plan: model.PlanPremium, StripeSubscriptionID: "sub_1"})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	got, _ := svc.Get(context.Background(), 1)
	if got.PostsThisMonth != 0 || got.MaxPostsPerMonth != model.UnlimitedPosts || got.Status != model.StatusActive {
		t.Errorf("subscription = %+v, want premium active with counter 0", got)
	}
}

func TestSubscriptionService_StatusChanges(t *testing.T) {
	repo := newMemorySubscriptions(model.NewFreeSubscription())
	svc := NewSubscriptionService(repo, sl.Discard())
	ctx := context.Background()

	if err := svc.MarkPaymentSucceeded(ctx, "sub_ok"); err != nil {
		t.Fatalf("MarkPaymentSucceeded: %v", err)
	}
	if err := svc.MarkPaymentFailed(ctx, "sub_bad"); err != nil {
		t.Fatalf("MarkPaymentFailed: %v", err)
	}

	if repo.statusChanges["sub_ok"] != model.StatusActive {
		t.Errorf("sub_ok = %q, want active", repo.statusChanges["sub_ok"])
	}
	if repo.statusChanges["sub_bad"] != model.StatusInactive {
		t.Errorf("sub_bad = %q, want inactive", repo.statusChanges["sub_bad"])
	}
}

func TestSubscriptionService_EmptySubscriptionID(t *testing.T) {
	repo := newMemorySubscriptions(model.NewFreeSubscription())
	svc := NewSubscriptionService(repo, sl.Discard())
	ctx := context.Background()

	if err := svc.MarkPaymentSucceeded(ctx, ""); !errors.Is(err, model.ErrSubscriptionNotFound) {
		t.Errorf("MarkPaymentSucceeded error = %v, want %v", err, model.ErrSubscriptionNotFound)
	}
	if err := svc.Cancel(ctx, ""); !errors.Is(err, model.ErrSubscriptionNotFound) {
		t.Errorf("Cancel error = %v, want %v", err, model.ErrSubscriptionNotFound)
	}
	if len(repo.statusChanges) != 0 || len(repo.cancelled) != 0 {
		t.Error("repository should not be written without a subscription id")
	}
}

func TestSubscriptionService_CancelReturnsToFree(t *testing.T) {
	sub := model.NewFreeSubscription()
	sub.Plan = model.PlanBasic
	sub.MaxPostsPerMonth = 20
	sub.PostsThisMonth = 12
	repo := newMemorySubscriptions(sub)
	svc := NewSubscriptionService(repo, sl.Discard())

	if err := svc.Cancel(context.Background(), "sub_1"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, _ := svc.Get(context.Background(), 1)
	if got.Plan != model.PlanFree || got.MaxPostsPerMonth != 3 || got.PostsThisMonth != 0 || got.Status != model.StatusCancelled {
		t.Errorf("subscription = %+v, want cancelled free 3/0", got)
	}
}

func TestSubscriptionService_ResetMonthly(t *testing.T) {
	sub := model.NewFreeSubscription()
	sub.PostsThisMonth = 3
	repo := newMemorySubscriptions(sub)
	svc := NewSubscriptionService(repo, sl.Discard())

	n, err := svc.ResetMonthly(context.Background())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 1 || repo.counter() != 0 {
		t.Errorf("reset %d users, counter %d; want 1 and 0", n, repo.counter())
	}
}
