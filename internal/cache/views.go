package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ViewBufferKey is the sorted set of post id -> views not yet written to the database.
const ViewBufferKey = "views:pending"

// PostViews is a buffered view count for one post.
type PostViews struct {
	PostID int64
	Views  int64
}

// ViewBuffer batches post views in Redis between database flushes.
type ViewBuffer interface {
	// Incr adds delta views to a post (ZINCRBY).
	Incr(ctx context.Context, postID, delta int64) error

	// Drain removes and returns up to count buffered posts, busiest first.
	Drain(ctx context.Context, count int64) ([]PostViews, error)
}

// RedisViewBuffer implements ViewBuffer using a Redis sorted set.
type RedisViewBuffer struct {
	client *redis.Client
}

func NewViewBuffer(client *redis.Client) ViewBuffer {
	return &RedisViewBuffer{client: client}
}

func (b *RedisViewBuffer) Incr(ctx context.Context, postID, delta int64) error {
	member := strconv.FormatInt(postID, 10)
	if err := b.client.ZIncrBy(ctx, ViewBufferKey, float64(delta), member).Err(); err != nil {
		return fmt.Errorf("buffer view: %w", err)
	}
	return nil
}

// Drain uses ZPOPMAX, so a post popped here is never counted twice.
func (b *RedisViewBuffer) Drain(ctx context.Context, count int64) ([]PostViews, error) {
	results, err := b.client.ZPopMax(ctx, ViewBufferKey, count).Result()
	if err != nil {
		return nil, fmt.Errorf("drain views: %w", err)
	}

	out := make([]PostViews, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, PostViews{PostID: id, Views: int64(z.Score)})
	}
	return out, nil
}
