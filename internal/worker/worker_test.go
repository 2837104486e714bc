package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postify/internal/cache"
	"postify/internal/lib/sl"
	"postify/internal/queue"
	"postify/internal/worker"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type fixture struct {
	client    *redis.Client
	blogCache cache.BlogCache
	views     cache.ViewBuffer
	handler   *worker.Handler
}

func newFixture(t *testing.T) *fixture {
	_, client := setupTestRedis(t)
	blogCache := cache.NewBlogCache(client, time.Minute, sl.Discard())
	views := cache.NewViewBuffer(client)
	return &fixture{
		client:    client,
		blogCache: blogCache,
		views:     views,
		handler:   worker.NewHandler(blogCache, views, sl.Discard()),
	}
}

func (f *fixture) cached(t *testing.T, username string) bool {
	t.Helper()
	var v map[string]any
	found, err := f.blogCache.Get(context.Background(), username, cache.FieldProfile, &v)
	require.NoError(t, err)
	return found
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandler_InvalidatingEvents(t *testing.T) {
	events := map[string]queue.BlogEvent{
		"published": queue.NewPostPublishedEvent(1, 2, "Alice", "hello"),
		"updated":   queue.NewPostUpdatedEvent(1, 2, "Alice", "hello"),
		"deleted":   queue.NewPostDeletedEvent(1, 2, "Alice", "hello"),
		"profile":   queue.NewProfileUpdatedEvent(2, "Alice"),
	}

	for name, event := range events {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.blogCache.Set(ctx, "alice", cache.FieldProfile, map[string]string{"username": "alice"}))
			require.True(t, f.cached(t, "alice"))

			require.NoError(t, f.handler.HandleEvent(ctx, event))

			assert.False(t, f.cached(t, "alice"), "blog cache should be dropped")
		})
	}
}

func TestHandler_ViewsAreBuffered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.handler.HandleEvent(ctx, queue.NewPostViewedEvent(10, 2)))
	}
	require.NoError(t, f.handler.HandleEvent(ctx, queue.NewPostViewedEvent(11, 2)))

	drained, err := f.views.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []cache.PostViews{{PostID: 10, Views: 3}, {PostID: 11, Views: 1}}, drained)
}

func TestHandler_RejectsUnknownAndIncompleteEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Error(t, f.handler.HandleEvent(ctx, queue.BlogEvent{Type: "post_liked"}))
	assert.Error(t, f.handler.HandleEvent(ctx, queue.BlogEvent{Type: queue.EventPostPublished}))
	assert.Error(t, f.handler.HandleEvent(ctx, queue.BlogEvent{Type: queue.EventPostViewed}))
}

// =============================================================================
// End-to-End: publisher -> stream -> manager -> handler
// =============================================================================

func TestManager_ConsumesPublishedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.blogCache.Set(ctx, "bob", cache.FieldProfile, map[string]string{"username": "bob"}))

	publisher := queue.NewPublisher(f.client, sl.Discard())
	consumer := queue.NewConsumer(f.client, sl.Discard())
	manager := worker.NewManager(consumer, f.handler, worker.ManagerConfig{
		WorkerCount:  2,
		BatchSize:    5,
		BlockTimeout: 50 * time.Millisecond,
	}, sl.Discard())

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	_, err := publisher.Publish(ctx, queue.StreamBlog, queue.NewPostPublishedEvent(7, 3, "bob", "first"))
	require.NoError(t, err)
	_, err = publisher.Publish(ctx, queue.StreamBlog, queue.NewPostViewedEvent(7, 3))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !f.cached(t, "bob")
	}, 2*time.Second, 20*time.Millisecond, "published event should invalidate the blog")

	require.Eventually(t, func() bool {
		score, err := f.client.ZScore(ctx, cache.ViewBufferKey, "7").Result()
		return err == nil && score == 1
	}, 2*time.Second, 20*time.Millisecond, "viewed event should reach the view buffer")

	require.Eventually(t, func() bool {
		pending, err := consumer.Pending(ctx, queue.StreamBlog, queue.ConsumerGroupBlog)
		return err == nil && pending == 0
	}, 2*time.Second, 20*time.Millisecond, "every message should be acknowledged")
}

func TestManager_ReplaysPendingAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	publisher := queue.NewPublisher(f.client, sl.Discard())
	consumer := queue.NewConsumer(f.client, sl.Discard())
	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamBlog, queue.ConsumerGroupBlog))

	_, err := publisher.Publish(ctx, queue.StreamBlog, queue.NewPostViewedEvent(42, 1))
	require.NoError(t, err)

	// Simulate a crash: worker-1 reads the message but never acks it
	msgs, err := consumer.Read(ctx, queue.StreamBlog, queue.ConsumerGroupBlog, "worker-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	manager := worker.NewManager(consumer, f.handler, worker.ManagerConfig{
		WorkerCount:  1,
		BlockTimeout: 50 * time.Millisecond,
	}, sl.Discard())
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	require.Eventually(t, func() bool {
		score, err := f.client.ZScore(ctx, cache.ViewBufferKey, "42").Result()
		return err == nil && score == 1
	}, 2*time.Second, 20*time.Millisecond)
}
