package model

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/lib/pq"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// ParsePostStatus maps an incoming status to a PostStatus. Empty means draft.
func ParsePostStatus(s string) (PostStatus, bool) {
	switch PostStatus(s) {
	case "", PostDraft:
		return PostDraft, true
	case PostPublished:
		return PostPublished, true
	}
	return "", false
}

// Post is a blog entry owned by exactly one user.
type Post struct {
	ID            int64          `db:"id" json:"id"`
	AuthorID      int64          `db:"author_id" json:"author_id"`
	Title         string         `db:"title" json:"title"`
	Slug          string         `db:"slug" json:"slug"`
	Content       string         `db:"content" json:"content"`
	Excerpt       *string        `db:"excerpt" json:"excerpt"`
	FeaturedImage *string        `db:"featured_image" json:"featured_image"`
	Images        pq.StringArray `db:"images" json:"images"`
	Videos        pq.StringArray `db:"videos" json:"videos"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	Status        PostStatus     `db:"status" json:"status"`
	PublishedAt   *time.Time     `db:"published_at" json:"published_at"`
	Views         int64          `db:"views" json:"views"`
	Likes         int64          `db:"likes" json:"likes"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`

	// Joined field (not in posts table)
	Author *AuthorSummary `db:"-" json:"author,omitempty"`
}

// IsPublished reports whether the post has gone through the publish gate.
func (p *Post) IsPublished() bool {
	return p.Status == PostPublished
}

// AuthorSummary is the author block embedded in post responses.
type AuthorSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title         string   `json:"title" validate:"max=200"`
	Content       string   `json:"content"`
	Excerpt       *string  `json:"excerpt" validate:"omitempty,max=500"`
	FeaturedImage *string  `json:"featured_image" validate:"omitempty,url"`
	Images        []string `json:"images" validate:"max=20,dive,url"`
	Videos        []string `json:"videos" validate:"max=10,dive,url"`
	Tags          []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
	Status        string   `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdatePostRequest is the request body for editing a post. Nil fields are kept.
type UpdatePostRequest struct {
	Title         *string   `json:"title" validate:"omitempty,max=200"`
	Content       *string   `json:"content"`
	Excerpt       *string   `json:"excerpt" validate:"omitempty,max=500"`
	FeaturedImage *string   `json:"featured_image" validate:"omitempty,url"`
	Images        *[]string `json:"images" validate:"omitempty,max=20,dive,url"`
	Videos        *[]string `json:"videos" validate:"omitempty,max=10,dive,url"`
	Tags          *[]string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	Status        *string   `json:"status" validate:"omitempty,oneof=draft published"`
}

// PostListResponse wraps a list of posts.
type PostListResponse struct {
	Posts []Post `json:"posts"`
}

// Post limits
const (
	MaxPostTitleLength   = 200
	MaxPostExcerptLength = 500
)

// Post errors
var (
	ErrPostNotFound         = errors.New("post not found")
	ErrNotPostOwner         = errors.New("not the owner of this post")
	ErrTitleContentRequired = errors.New("title and content are required")
	ErrInvalidPostStatus    = errors.New("invalid post status")
	ErrCannotUnpublish      = errors.New("published posts cannot return to draft")
	ErrSlugExhausted        = errors.New("no free slug for title")
	ErrSlugTaken            = errors.New("slug already used by this author")
)

// Slugify lowercases title and collapses every run of non-alphanumerics to a
// single hyphen, trimming hyphens at both ends.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// PostResponse wraps a single post.
type PostResponse struct {
	Post *Post `json:"post"`
}

// SuccessResponse is returned by deletes.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// TitleContentRequiredMessage is returned when either field is blank.
const TitleContentRequiredMessage = "Title and content are required"
