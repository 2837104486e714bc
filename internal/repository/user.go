package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"postify/internal/model"
)

const userColumns = `
	id, username, username_locked, email, password_hashed, profile_picture, banner_image,
	bio, blog_title, blog_description, custom_domain,
	theme_primary_color, theme_background_color, theme_text_color, theme_accent_color,
	plan, subscription_status, stripe_customer_id, stripe_subscription_id, current_period_end,
	posts_this_month, max_posts_per_month, created_at, updated_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user with its initial theme and subscription
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (
			username, username_locked, email, password_hashed,
			theme_primary_color, theme_background_color, theme_text_color, theme_accent_color,
			plan, subscription_status, posts_this_month, max_posts_per_month
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.UsernameLocked,
		u.Email,
		u.PasswordHashed,
		u.Theme.PrimaryColor,
		u.Theme.BackgroundColor,
		u.Theme.TextColor,
		u.Theme.AccentColor,
		u.Subscription.Plan,
		u.Subscription.Status,
		u.Subscription.PostsThisMonth,
		u.Subscription.MaxPostsPerMonth,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapUserConstraint(err, "failed to insert user")
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByUsername retrieves a user by username, ignoring case
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile writes the non-nil fields of upd. A username change only
// applies while the username is unlocked, and locks it.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	var primary, background, text, accent *string
	if upd.Theme != nil {
		primary = nonEmpty(upd.Theme.PrimaryColor)
		background = nonEmpty(upd.Theme.BackgroundColor)
		text = nonEmpty(upd.Theme.TextColor)
		accent = nonEmpty(upd.Theme.AccentColor)
	}

	query := `
		UPDATE users SET
			username               = COALESCE($2, username),
			username_locked        = username_locked OR $2::text IS NOT NULL,
			bio                    = COALESCE($3, bio),
			blog_title             = COALESCE($4, blog_title),
			blog_description       = COALESCE($5, blog_description),
			profile_picture        = COALESCE($6, profile_picture),
			banner_image           = COALESCE($7, banner_image),
			custom_domain          = COALESCE($8, custom_domain),
			theme_primary_color    = COALESCE($9, theme_primary_color),
			theme_background_color = COALESCE($10, theme_background_color),
			theme_text_color       = COALESCE($11, theme_text_color),
			theme_accent_color     = COALESCE($12, theme_accent_color),
			updated_at             = NOW()
		WHERE id = $1 AND ($2::text IS NULL OR username_locked = FALSE)
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id,
		upd.Username,
		upd.Bio,
		upd.BlogTitle,
		upd.BlogDescription,
		upd.ProfilePicture,
		upd.BannerImage,
		upd.CustomDomain,
		primary, background, text, accent,
	)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapUserConstraint(err, "failed to update profile")
	}

	// No row: either the user is gone or the username is locked.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, model.ErrUsernameLocked
}

func mapUserConstraint(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case "users_username_lower_idx":
			return model.ErrUsernameExists
		case "users_email_lower_idx":
			return model.ErrEmailExists
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
