package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared go-redis client. The blog cache, view buffer and
// event stream all use the same pool.
type Client struct {
	*redis.Client
	log *slog.Logger
}

// NewClient creates a new Redis client from the given URL.
// URL format: redis://[:password@]host:port[/db]
func NewClient(redisURL string, log *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Client{
		Client: redis.NewClient(opts),
		log:    log.With(slog.String("component", "redis"), slog.String("addr", opts.Addr)),
	}, nil
}

// Ping verifies the connection to Redis.
// Call this on startup to fail fast if Redis is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	c.log.Info("redis connected")
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
