package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"postify/internal/cache"
	"postify/internal/queue"
)

// Handler applies blog events to the Redis read side.
type Handler struct {
	blogCache cache.BlogCache
	views     cache.ViewBuffer
	log       *slog.Logger
}

// NewHandler creates a new event handler.
func NewHandler(blogCache cache.BlogCache, views cache.ViewBuffer, log *slog.Logger) *Handler {
	return &Handler{
		blogCache: blogCache,
		views:     views,
		log:       log.With(slog.String("component", "worker_handler")),
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.BlogEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostPublished, queue.EventPostUpdated, queue.EventPostDeleted, queue.EventProfileUpdated:
		err = h.invalidateBlog(ctx, event)
	case queue.EventPostViewed:
		err = h.bufferView(ctx, event)
	default:
		h.log.Warn("unknown event type", slog.String("type", event.Type))
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		return err
	}

	h.log.Debug("event handled",
		slog.String("type", event.Type),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// invalidateBlog drops every cached page of the author's blog.
func (h *Handler) invalidateBlog(ctx context.Context, event queue.BlogEvent) error {
	if event.Username == "" {
		return fmt.Errorf("%s event without username", event.Type)
	}
	if err := h.blogCache.Invalidate(ctx, event.Username); err != nil {
		return fmt.Errorf("invalidate blog %s: %w", event.Username, err)
	}
	return nil
}

func (h *Handler) bufferView(ctx context.Context, event queue.BlogEvent) error {
	if event.PostID <= 0 {
		return fmt.Errorf("post_viewed event without post id")
	}
	if err := h.views.Incr(ctx, event.PostID, 1); err != nil {
		return fmt.Errorf("buffer view post=%d: %w", event.PostID, err)
	}
	return nil
}
