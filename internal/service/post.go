package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"postify/internal/lib/sl"
	"postify/internal/lib/validate"
	"postify/internal/metrics"
	"postify/internal/model"
	"postify/internal/queue"
	"postify/internal/repository"
)

// slugAttempts bounds retries when a concurrent write takes the chosen slug.
const slugAttempts = 3

// defaultSlug is used when a title has no ASCII letters or digits.
const defaultSlug = "post"

// QuotaGate is the part of SubscriptionService the post flow needs.
type QuotaGate interface {
	ConsumePublish(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Subscription, error)
}

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	quota     QuotaGate
	txr       repository.Transactor
	publisher queue.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	quota QuotaGate,
	txr repository.Transactor,
	publisher queue.Publisher,
	log *slog.Logger,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		quota:     quota,
		txr:       txr,
		publisher: publisher,
		log:       log.With(slog.String("component", "post_service")),
		now:       time.Now,
	}
}

// List returns every post of the caller, drafts included, newest first.
func (s *PostService) List(ctx context.Context, userID int64) ([]model.Post, error) {
	return s.postRepo.ListByAuthor(ctx, userID)
}

// Get returns one post to its author.
func (s *PostService) Get(ctx context.Context, userID, postID int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, model.ErrNotPostOwner
	}
	return post, nil
}

// Create stores a new post. A post created as published goes through the
// monthly quota gate in the same transaction as the insert.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		return nil, model.NewValidationError(model.TitleContentRequiredMessage)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	status, ok := model.ParsePostStatus(req.Status)
	if !ok {
		return nil, model.ErrInvalidPostStatus
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID:      userID,
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		Images:        req.Images,
		Videos:        req.Videos,
		Tags:          req.Tags,
		Status:        status,
	}
	if status == model.PostPublished {
		now := s.now()
		post.PublishedAt = &now
	}

	base := slugBase(post.Title)
	err = s.withSlugRetry(func() error {
		return s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
			if post.IsPublished() {
				if _, err := s.quota.ConsumePublish(ctx, tx, userID); err != nil {
					return err
				}
			}
			slug, err := s.postRepo.NextSlug(ctx, tx, userID, base, 0)
			if err != nil {
				return err
			}
			post.Slug = slug
			return s.postRepo.Create(ctx, tx, post)
		})
	})
	if err != nil {
		return nil, s.wrap("create post", err)
	}

	post.Author = &model.AuthorSummary{ID: author.ID, Username: author.Username}

	if post.IsPublished() {
		metrics.PostsPublished.Inc()
		s.publish(ctx, queue.NewPostPublishedEvent(post.ID, userID, author.Username, post.Slug))
	}

	s.log.Info("post created",
		slog.Int64("post_id", post.ID),
		slog.Int64("author_id", userID),
		slog.String("status", string(post.Status)),
	)
	return post, nil
}

// Update edits a post owned by userID. Moving a draft to published goes
// through the quota gate; edits to a published post are never metered.
func (s *PostService) Update(ctx context.Context, userID, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		post         *model.Post
		wasPublished bool
	)
	err = s.withSlugRetry(func() error {
		return s.txr.WithinTx(ctx, func(tx *sqlx.Tx) error {
			current, err := s.postRepo.GetForUpdate(ctx, tx, postID)
			if err != nil {
				return err
			}
			if current.AuthorID != userID {
				return model.ErrNotPostOwner
			}
			wasPublished = current.IsPublished()

			oldTitle := current.Title
			if err := applyPostUpdate(current, req); err != nil {
				return err
			}

			if !wasPublished && current.IsPublished() {
				if _, err := s.quota.ConsumePublish(ctx, tx, userID); err != nil {
					return err
				}
				now := s.now()
				current.PublishedAt = &now
			}

			// Slugs follow the title until the post is first published.
			if !wasPublished && current.Title != oldTitle {
				slug, err := s.postRepo.NextSlug(ctx, tx, userID, slugBase(current.Title), current.ID)
				if err != nil {
					return err
				}
				current.Slug = slug
			}

			if err := s.postRepo.Update(ctx, tx, current); err != nil {
				return err
			}
			post = current
			return nil
		})
	})
	if err != nil {
		return nil, s.wrap("update post", err)
	}

	post.Author = &model.AuthorSummary{ID: author.ID, Username: author.Username}

	switch {
	case !wasPublished && post.IsPublished():
		metrics.PostsPublished.Inc()
		s.publish(ctx, queue.NewPostPublishedEvent(post.ID, userID, author.Username, post.Slug))
	case wasPublished:
		s.publish(ctx, queue.NewPostUpdatedEvent(post.ID, userID, author.Username, post.Slug))
	}

	return post, nil
}

// Delete removes a post owned by userID. Published posts already counted
// this month stay counted.
func (s *PostService) Delete(ctx context.Context, userID, postID int64) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return model.ErrNotPostOwner
	}

	if err := s.postRepo.Delete(ctx, postID, userID); err != nil {
		return err
	}

	if post.IsPublished() {
		username := ""
		if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
			username = author.Username
		}
		s.publish(ctx, queue.NewPostDeletedEvent(postID, userID, username, post.Slug))
	}
	return nil
}

// applyPostUpdate copies the fields present in req onto post.
func applyPostUpdate(post *model.Post, req model.UpdatePostRequest) error {
	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if post.Title == "" || strings.TrimSpace(post.Content) == "" {
		return model.NewValidationError(model.TitleContentRequiredMessage)
	}
	if req.Excerpt != nil {
		post.Excerpt = req.Excerpt
	}
	if req.FeaturedImage != nil {
		post.FeaturedImage = req.FeaturedImage
	}
	if req.Images != nil {
		post.Images = *req.Images
	}
	if req.Videos != nil {
		post.Videos = *req.Videos
	}
	if req.Tags != nil {
		post.Tags = *req.Tags
	}
	if req.Status != nil {
		status, ok := model.ParsePostStatus(*req.Status)
		if !ok {
			return model.ErrInvalidPostStatus
		}
		if post.IsPublished() && status == model.PostDraft {
			return model.ErrCannotUnpublish
		}
		post.Status = status
	}
	return nil
}

func (s *PostService) withSlugRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, model.ErrSlugTaken) {
			return err
		}
	}
	return err
}

// wrap passes domain errors through untouched and wraps the rest.
func (s *PostService) wrap(op string, err error) error {
	for _, domainErr := range []error{
		model.ErrQuotaExceeded,
		model.ErrNotPostOwner,
		model.ErrPostNotFound,
		model.ErrUserNotFound,
		model.ErrInvalidPostStatus,
		model.ErrCannotUnpublish,
		model.ErrValidation,
	} {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostService) publish(ctx context.Context, event queue.BlogEvent) {
	if s.publisher == nil {
		return
	}
	// The write is committed; a lost event only delays cache invalidation.
	if _, err := s.publisher.Publish(ctx, queue.StreamBlog, event); err != nil {
		s.log.Warn("failed to publish blog event",
			slog.String("type", event.Type),
			slog.Int64("post_id", event.PostID),
			sl.Err(err),
		)
	}
}

func slugBase(title string) string {
	if slug := model.Slugify(title); slug != "" {
		return slug
	}
	return defaultSlug
}
