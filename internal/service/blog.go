package service

import (
	"context"
	"log/slog"

	"postify/internal/cache"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/queue"
	"postify/internal/repository"
)

const (
	DefaultBlogPageSize = 20
	MaxBlogPageSize     = 100
)

// BlogService serves the public, read-only side of every blog.
type BlogService struct {
	userRepo  repository.UserRepository
	postRepo  repository.PostRepository
	cache     cache.BlogCache // Can be nil
	publisher queue.Publisher // Can be nil
	log       *slog.Logger
}

func NewBlogService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	blogCache cache.BlogCache,
	publisher queue.Publisher,
	log *slog.Logger,
) *BlogService {
	return &BlogService{
		userRepo:  userRepo,
		postRepo:  postRepo,
		cache:     blogCache,
		publisher: publisher,
		log:       log.With(slog.String("component", "blog_service")),
	}
}

// GetProfile returns the public header of a blog. username matches ignoring case.
func (s *BlogService) GetProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	var profile model.PublicProfile
	if s.cacheGet(ctx, username, cache.FieldProfile, &profile) {
		return &profile, nil
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	profile = user.Public()
	s.cacheSet(ctx, username, cache.FieldProfile, profile)
	return &profile, nil
}

// ListPosts returns published posts, most recently published first.
func (s *BlogService) ListPosts(ctx context.Context, username string, limit, offset int) ([]model.Post, error) {
	limit, offset = clampPage(limit, offset)

	field := cache.PostsField(limit, offset)
	var posts []model.Post
	if s.cacheGet(ctx, username, field, &posts) {
		return posts, nil
	}

	profile, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err = s.postRepo.ListPublishedByAuthor(ctx, profile.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	author := &model.AuthorSummary{ID: profile.ID, Username: profile.Username}
	for i := range posts {
		posts[i].Author = author
	}

	s.cacheSet(ctx, username, field, posts)
	return posts, nil
}

// GetPost returns one published post and records a view.
// Views are counted asynchronously, so the returned count may lag.
func (s *BlogService) GetPost(ctx context.Context, username, slug string) (*model.Post, error) {
	field := cache.PostField(slug)

	var post model.Post
	if !s.cacheGet(ctx, username, field, &post) {
		profile, err := s.GetProfile(ctx, username)
		if err != nil {
			return nil, err
		}
		found, err := s.postRepo.GetPublishedBySlug(ctx, profile.ID, slug)
		if err != nil {
			return nil, err
		}
		found.Author = &model.AuthorSummary{ID: profile.ID, Username: profile.Username}
		post = *found
		s.cacheSet(ctx, username, field, post)
	}

	s.recordView(ctx, post.ID, post.AuthorID)
	return &post, nil
}

func (s *BlogService) recordView(ctx context.Context, postID, authorID int64) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamBlog, queue.NewPostViewedEvent(postID, authorID)); err != nil {
		s.log.Warn("failed to record view", slog.Int64("post_id", postID), sl.Err(err))
	}
}

// cacheGet reports a hit. Cache failures are logged and treated as misses.
func (s *BlogService) cacheGet(ctx context.Context, username, field string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, username, field, dest)
	if err != nil {
		s.log.Warn("blog cache read failed", slog.String("username", username), sl.Err(err))
		return false
	}
	return found
}

func (s *BlogService) cacheSet(ctx context.Context, username, field string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, username, field, v); err != nil {
		s.log.Warn("blog cache write failed", slog.String("username", username), sl.Err(err))
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultBlogPageSize
	}
	if limit > MaxBlogPageSize {
		limit = MaxBlogPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
