package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"postify/internal/model"
	"postify/internal/queue"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Services depend on repository interfaces, so each test swaps in a mock whose
// behavior is set through function fields. Unset fields fall back to a
// harmless default.

type mockUserRepository struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	getByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	updateProfileFn    func(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error)

	// Track calls for assertions
	createCalls        []*model.User
	updateProfileCalls []model.ProfileUpdate
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	m.updateProfileCalls = append(m.updateProfileCalls, upd)
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, upd)
	}
	return &model.User{ID: id}, nil
}

type mockPostRepository struct {
	createFn        func(ctx context.Context, post *model.Post) error
	getByIDFn       func(ctx context.Context, postID int64) (*model.Post, error)
	getForUpdateFn  func(ctx context.Context, postID int64) (*model.Post, error)
	updateFn        func(ctx context.Context, post *model.Post) error
	deleteFn        func(ctx context.Context, postID, authorID int64) error
	listByAuthorFn  func(ctx context.Context, authorID int64) ([]model.Post, error)
	listPublishedFn func(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error)
	getBySlugFn     func(ctx context.Context, authorID int64, slug string) (*model.Post, error)
	nextSlugFn      func(ctx context.Context, authorID int64, base string, excludePostID int64) (string, error)
	addViewsFn      func(ctx context.Context, postID, delta int64) error

	createCalls  []*model.Post
	updateCalls  []*model.Post
	deleteCalls  int
	addViewCalls map[int64]int64
}

func (m *mockPostRepository) Create(ctx context.Context, tx *sqlx.Tx, post *model.Post) error {
	m.createCalls = append(m.createCalls, post)
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	post.ID = int64(len(m.createCalls))
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, postID int64) (*model.Post, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, postID)
	}
	return m.GetByID(ctx, postID)
}

func (m *mockPostRepository) Update(ctx context.Context, tx *sqlx.Tx, post *model.Post) error {
	m.updateCalls = append(m.updateCalls, post)
	if m.updateFn != nil {
		return m.updateFn(ctx, post)
	}
	return nil
}

func (m *mockPostRepository) Delete(ctx context.Context, postID, authorID int64) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID, authorID)
	}
	return nil
}

func (m *mockPostRepository) ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, authorID)
	}
	return []model.Post{}, nil
}

func (m *mockPostRepository) ListPublishedByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	if m.listPublishedFn != nil {
		return m.listPublishedFn(ctx, authorID, limit, offset)
	}
	return []model.Post{}, nil
}

func (m *mockPostRepository) GetPublishedBySlug(ctx context.Context, authorID int64, slug string) (*model.Post, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, authorID, slug)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) NextSlug(ctx context.Context, tx *sqlx.Tx, authorID int64, base string, excludePostID int64) (string, error) {
	if m.nextSlugFn != nil {
		return m.nextSlugFn(ctx, authorID, base, excludePostID)
	}
	return base, nil
}

func (m *mockPostRepository) AddViews(ctx context.Context, postID, delta int64) error {
	if m.addViewCalls == nil {
		m.addViewCalls = make(map[int64]int64)
	}
	m.addViewCalls[postID] += delta
	if m.addViewsFn != nil {
		return m.addViewsFn(ctx, postID, delta)
	}
	return nil
}

// memorySubscriptions keeps one user's subscription in memory and applies
// the same conditional increment as the SQL gate.
type memorySubscriptions struct {
	mu  sync.Mutex
	sub model.Subscription

	customerID      string
	appliedCheckout []model.CheckoutCompleted
	statusChanges   map[string]model.SubscriptionStatus
	cancelled       []string
	resets          int
}

func newMemorySubscriptions(sub model.Subscription) *memorySubscriptions {
	return &memorySubscriptions{sub: sub, statusChanges: make(map[string]model.SubscriptionStatus)}
}

func (m *memorySubscriptions) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.sub
	return &sub, nil
}

func (m *memorySubscriptions) ConsumePostQuota(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sub.CanPublish() {
		return nil, model.ErrQuotaExceeded
	}
	m.sub.PostsThisMonth++
	sub := m.sub
	return &sub, nil
}

func (m *memorySubscriptions) ApplyCheckout(ctx context.Context, c model.CheckoutCompleted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appliedCheckout = append(m.appliedCheckout, c)
	m.sub.Plan = c.Plan
	m.sub.Status = model.StatusActive
	m.sub.MaxPostsPerMonth = c.Plan.Quota()
	m.sub.PostsThisMonth = 0
	return nil
}

func (m *memorySubscriptions) SetStatusBySubscriptionID(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusChanges[subscriptionID] = status
	return nil
}

func (m *memorySubscriptions) CancelBySubscriptionID(ctx context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, subscriptionID)
	m.sub.Plan = model.PlanFree
	m.sub.Status = model.StatusCancelled
	m.sub.MaxPostsPerMonth = model.PlanFree.Quota()
	m.sub.PostsThisMonth = 0
	return nil
}

func (m *memorySubscriptions) SetCustomerID(ctx context.Context, userID int64, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerID = customerID
	m.sub.StripeCustomerID = &customerID
	return nil
}

func (m *memorySubscriptions) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.sub.PostsThisMonth = 0
	return 1, nil
}

func (m *memorySubscriptions) counter() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub.PostsThisMonth
}

// snapshot and restore let memoryTransactor roll the counter back.
func (m *memorySubscriptions) snapshot() model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub
}

func (m *memorySubscriptions) restore(sub model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sub = sub
}

// memoryTransactor runs fn with a nil tx and restores the subscription state
// when fn fails, the way a database rollback would.
type memoryTransactor struct {
	subs  *memorySubscriptions
	calls int
}

func (t *memoryTransactor) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	t.calls++
	var saved model.Subscription
	if t.subs != nil {
		saved = t.subs.snapshot()
	}
	if err := fn(nil); err != nil {
		if t.subs != nil {
			t.subs.restore(saved)
		}
		return err
	}
	return nil
}

type mockRefreshTokenRepository struct {
	createFn          func(ctx context.Context, token *model.RefreshToken) error
	findByTokenHashFn func(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	revokeFn          func(ctx context.Context, id string, replacedBy *string) error
	deleteExpiredFn   func(ctx context.Context, olderThan time.Duration) (int64, error)

	created      []*model.RefreshToken
	revoked      []string
	revokeAllFor []int64
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == "" {
		token.ID = "token-" + string(rune('a'+len(m.created)))
	}
	m.created = append(m.created, token)
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	if m.findByTokenHashFn != nil {
		return m.findByTokenHashFn(ctx, tokenHash)
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	m.revoked = append(m.revoked, id)
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id, replacedBy)
	}
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	m.revokeAllFor = append(m.revokeAllFor, userID)
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, olderThan)
	}
	return 0, nil
}

// =============================================================================
// MOCK PUBLISHER AND CACHE
// =============================================================================

type mockPublisher struct {
	mu     sync.Mutex
	err    error
	events []queue.BlogEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.BlogEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
