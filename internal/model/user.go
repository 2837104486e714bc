package model

import (
	"errors"
	"time"
)

// Theme colors applied to a user's public blog.
type Theme struct {
	PrimaryColor    string `db:"theme_primary_color" json:"primary_color" validate:"omitempty,hexcolor"`
	BackgroundColor string `db:"theme_background_color" json:"background_color" validate:"omitempty,hexcolor"`
	TextColor       string `db:"theme_text_color" json:"text_color" validate:"omitempty,hexcolor"`
	AccentColor     string `db:"theme_accent_color" json:"accent_color" validate:"omitempty,hexcolor"`
}

// DefaultTheme is assigned to every new account.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#3B82F6",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1F2937",
		AccentColor:     "#EFF6FF",
	}
}

// User represents a registered account and the blog it owns.
type User struct {
	ID              int64   `db:"id" json:"id"`
	Username        string  `db:"username" json:"username"`
	UsernameLocked  bool    `db:"username_locked" json:"username_locked"`
	Email           string  `db:"email" json:"email"`
	PasswordHashed  string  `db:"password_hashed" json:"-"`
	ProfilePicture  *string `db:"profile_picture" json:"profile_picture"`
	BannerImage     *string `db:"banner_image" json:"banner_image"`
	Bio             *string `db:"bio" json:"bio"`
	BlogTitle       *string `db:"blog_title" json:"blog_title"`
	BlogDescription *string `db:"blog_description" json:"blog_description"`
	CustomDomain    *string `db:"custom_domain" json:"custom_domain"`

	Theme        `json:"theme"`
	Subscription `json:"subscription"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PublicProfile is the blog header shown to anonymous readers.
// It never carries email, password or billing fields.
type PublicProfile struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	ProfilePicture  *string   `json:"profile_picture"`
	BannerImage     *string   `json:"banner_image"`
	Bio             *string   `json:"bio"`
	BlogTitle       *string   `json:"blog_title"`
	BlogDescription *string   `json:"blog_description"`
	Theme           Theme     `json:"theme"`
	CreatedAt       time.Time `json:"created_at"`
}

// Public strips private fields from u.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:              u.ID,
		Username:        u.Username,
		ProfilePicture:  u.ProfilePicture,
		BannerImage:     u.BannerImage,
		Bio:             u.Bio,
		BlogTitle:       u.BlogTitle,
		BlogDescription: u.BlogDescription,
		Theme:           u.Theme,
		CreatedAt:       u.CreatedAt,
	}
}

// UpdateProfileRequest is the body of PUT /user/profile.
// Nil fields are left untouched.
type UpdateProfileRequest struct {
	Username        *string `json:"username"`
	Bio             *string `json:"bio" validate:"omitempty,max=500"`
	BlogTitle       *string `json:"blog_title" validate:"omitempty,max=100"`
	BlogDescription *string `json:"blog_description" validate:"omitempty,max=500"`
	ProfilePicture  *string `json:"profile_picture" validate:"omitempty,url"`
	BannerImage     *string `json:"banner_image" validate:"omitempty,url"`
	CustomDomain    *string `json:"custom_domain" validate:"omitempty,hostname"`
	Theme           *Theme  `json:"theme"`
}

// ProfileUpdate is the set of columns a profile update writes.
type ProfileUpdate struct {
	Username        *string
	Bio             *string
	BlogTitle       *string
	BlogDescription *string
	ProfilePicture  *string
	BannerImage     *string
	CustomDomain    *string
	Theme           *Theme
}

// UsernameCheckResponse is returned by GET /check-username.
type UsernameCheckResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when a username is taken, ignoring case
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when an email is already registered
	ErrEmailExists = errors.New("email already exists")

	// ErrUsernameLocked is returned when changing a locked username
	ErrUsernameLocked = errors.New("username is locked")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")
)
