package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"postify/internal/metrics"
)

const (
	// BlogCachePrefix is the key prefix for per-blog hashes
	BlogCachePrefix = "blog:"

	// DefaultBlogCacheTTL applies when the configured TTL is not positive
	DefaultBlogCacheTTL = 2 * time.Minute

	FieldProfile = "profile"
)

// PostsField names the hash field caching one page of published posts.
func PostsField(limit, offset int) string {
	return fmt.Sprintf("posts:%d:%d", limit, offset)
}

// PostField names the hash field caching one published post by slug.
func PostField(slug string) string {
	return "post:" + slug
}

// BlogCache stores rendered public blog responses.
// Everything cached for one blog lives in a single hash, so one DEL drops it.
type BlogCache interface {
	// Get decodes a cached value into dest. found is false on a miss.
	Get(ctx context.Context, username, field string, dest any) (found bool, err error)

	// Set stores v as JSON and refreshes the blog's TTL.
	Set(ctx context.Context, username, field string, v any) error

	// Invalidate drops every cached response of a blog.
	Invalidate(ctx context.Context, username string) error
}

// RedisBlogCache implements BlogCache using Redis hashes.
type RedisBlogCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewBlogCache(client *redis.Client, ttl time.Duration, log *slog.Logger) BlogCache {
	if ttl <= 0 {
		ttl = DefaultBlogCacheTTL
	}
	return &RedisBlogCache{
		client: client,
		ttl:    ttl,
		log:    log.With(slog.String("component", "blog_cache")),
	}
}

// blogKey is case-insensitive, matching username lookups.
func blogKey(username string) string {
	return BlogCachePrefix + strings.ToLower(username)
}

func (c *RedisBlogCache) Get(ctx context.Context, username, field string, dest any) (bool, error) {
	raw, err := c.client.HGet(ctx, blogKey(username), field).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.BlogCacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get blog cache: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// A stale shape after a deploy; treat as a miss and drop it.
		c.client.HDel(ctx, blogKey(username), field)
		metrics.BlogCacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}

	metrics.BlogCacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Set uses a pipeline: HSET + EXPIRE.
func (c *RedisBlogCache) Set(ctx context.Context, username, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal blog cache value: %w", err)
	}

	key := blogKey(username)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set blog cache: %w", err)
	}
	return nil
}

func (c *RedisBlogCache) Invalidate(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	if err := c.client.Del(ctx, blogKey(username)).Err(); err != nil {
		return fmt.Errorf("invalidate blog cache: %w", err)
	}
	c.log.Debug("invalidated", slog.String("username", username))
	return nil
}
