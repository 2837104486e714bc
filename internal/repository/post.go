package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"postify/internal/model"
)

const postColumns = `
	id, author_id, title, slug, content, excerpt, featured_image, images, videos, tags,
	status, published_at, views, likes, created_at, updated_at`

// maxSlugSuffix bounds the -N search in NextSlug.
const maxSlugSuffix = 1000

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post inside tx. published_at is set by the caller.
func (r *postRepository) Create(ctx context.Context, tx *sqlx.Tx, post *model.Post) error {
	query := `
		INSERT INTO posts (
			author_id, title, slug, content, excerpt, featured_image,
			images, videos, tags, status, published_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + postColumns

	err := tx.GetContext(ctx, post, query,
		post.AuthorID,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		nonNilArray(post.Images),
		nonNilArray(post.Videos),
		nonNilArray(post.Tags),
		post.Status,
		post.PublishedAt,
	)
	if err != nil {
		return mapPostConstraint(err, "insert post")
	}
	return nil
}

// GetByID retrieves a post regardless of status.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	var post model.Post
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, postID int64) (*model.Post, error) {
	var post model.Post
	err := tx.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post for update: %w", err)
	}
	return &post, nil
}

// Update writes every editable column of post.
func (r *postRepository) Update(ctx context.Context, tx *sqlx.Tx, post *model.Post) error {
	query := `
		UPDATE posts SET
			title          = $2,
			slug           = $3,
			content        = $4,
			excerpt        = $5,
			featured_image = $6,
			images         = $7,
			videos         = $8,
			tags           = $9,
			status         = $10,
			published_at   = $11,
			updated_at     = NOW()
		WHERE id = $1
		RETURNING ` + postColumns

	err := tx.GetContext(ctx, post, query,
		post.ID,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		nonNilArray(post.Images),
		nonNilArray(post.Videos),
		nonNilArray(post.Tags),
		post.Status,
		post.PublishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrPostNotFound
	}
	if err != nil {
		return mapPostConstraint(err, "update post")
	}
	return nil
}

// Delete removes a post owned by authorID. The quota counter is not refunded.
func (r *postRepository) Delete(ctx context.Context, postID, authorID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Check if post exists but belongs to different user
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID); err != nil {
			return fmt.Errorf("check post exists: %w", err)
		}
		if exists {
			return model.ErrNotPostOwner
		}
		return model.ErrPostNotFound
	}
	return nil
}

// ListByAuthor returns drafts and published posts, newest first.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = $1 ORDER BY created_at DESC, id DESC`

	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, authorID); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

// ListPublishedByAuthor returns published posts, most recently published first.
func (r *postRepository) ListPublishedByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE author_id = $1 AND status = 'published'
		ORDER BY published_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, authorID, limit, offset); err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) GetPublishedBySlug(ctx context.Context, authorID int64, slug string) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = $1 AND slug = $2 AND status = 'published'`

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, authorID, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return &post, nil
}

func (r *postRepository) NextSlug(ctx context.Context, tx *sqlx.Tx, authorID int64, base string, excludePostID int64) (string, error) {
	query := `
		SELECT slug FROM posts
		WHERE author_id = $1 AND id <> $2 AND (slug = $3 OR slug LIKE $4)
	`
	var taken []string
	err := tx.SelectContext(ctx, &taken, query, authorID, excludePostID, base, escapeLike(base)+"-%")
	if err != nil {
		return "", fmt.Errorf("list slugs: %w", err)
	}
	return pickSlug(base, taken)
}

// AddViews adds delta to a post's view counter.
func (r *postRepository) AddViews(ctx context.Context, postID int64, delta int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET views = views + $2 WHERE id = $1`, postID, delta)
	if err != nil {
		return fmt.Errorf("add views: %w", err)
	}
	return nil
}

// pickSlug returns base if unused, else base-N with the smallest free N >= 2.
func pickSlug(base string, taken []string) (string, error) {
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for n := 2; n <= maxSlugSuffix; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", model.ErrSlugExhausted
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// nonNilArray keeps TEXT[] columns at '{}' rather than NULL.
func nonNilArray(a pq.StringArray) pq.StringArray {
	if a == nil {
		return pq.StringArray{}
	}
	return a
}

func mapPostConstraint(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == "posts_author_slug_key" {
		return model.ErrSlugTaken
	}
	return fmt.Errorf("%s: %w", msg, err)
}
