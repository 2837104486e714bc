package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"postify/internal/model"
)

// Transactor runs fn inside one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ExistsByUsername matches case-insensitively.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error)
}

// SubscriptionRepository writes the subscription columns of users.
// Only SubscriptionService should hold one.
type SubscriptionRepository interface {
	Get(ctx context.Context, userID int64) (*model.Subscription, error)
	// ConsumePostQuota increments posts_this_month only if the ceiling allows it.
	// Returns model.ErrQuotaExceeded when it does not.
	ConsumePostQuota(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Subscription, error)
	ApplyCheckout(ctx context.Context, c model.CheckoutCompleted) error
	SetStatusBySubscriptionID(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error
	CancelBySubscriptionID(ctx context.Context, subscriptionID string) error
	SetCustomerID(ctx context.Context, userID int64, customerID string) error
	ResetMonthlyCounters(ctx context.Context) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, post *model.Post) error
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// GetForUpdate locks the row until tx ends.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, postID int64) (*model.Post, error)
	Update(ctx context.Context, tx *sqlx.Tx, post *model.Post) error
	Delete(ctx context.Context, postID, authorID int64) error
	ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error)
	ListPublishedByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error)
	GetPublishedBySlug(ctx context.Context, authorID int64, slug string) (*model.Post, error)
	// NextSlug returns base, or base-N for the smallest free N, for this author.
	NextSlug(ctx context.Context, tx *sqlx.Tx, authorID int64, base string, excludePostID int64) (string, error)
	AddViews(ctx context.Context, postID int64, delta int64) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}
