package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"postify/internal/lib/sl"
)

// Publisher adds events to a stream.
type Publisher interface {
	// Publish returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event BlogEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
	log    *slog.Logger
}

// DefaultStreamMaxLen caps the blog stream; acknowledged history beyond it is trimmed.
const DefaultStreamMaxLen = 100_000

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client, log *slog.Logger) Publisher {
	return &RedisPublisher{
		client: client,
		maxLen: DefaultStreamMaxLen,
		log:    log.With(slog.String("component", "publisher")),
	}
}

// Publish adds an event with XADD and an auto-generated ID.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event BlogEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		p.log.Error("publish failed", slog.String("stream", stream), slog.String("type", event.Type), sl.Err(err))
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		p.log.Error("publish failed", slog.String("stream", stream), slog.String("type", event.Type), sl.Err(err))
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	p.log.Debug("published",
		slog.String("stream", stream),
		slog.String("type", event.Type),
		slog.String("msg_id", messageID),
		slog.Int64("post_id", event.PostID),
		slog.Int64("author_id", event.AuthorID),
		slog.Duration("duration", time.Since(startTime)),
	)

	return messageID, nil
}
