package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/go-redis/redis/v8"
)

// StreamAdder is the slice of *redis.Client the sink needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends each event to one stream per channel, e.g.
// "notifications:email", for the email and WhatsApp senders to consume.
type RedisStreamSink struct {
	client StreamAdder
	prefix string
	maxLen int64
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return c, nil
}

func NewRedisStreamSink(client StreamAdder, cfg config.RedisConfig) *RedisStreamSink {
	return &RedisStreamSink{
		client: client,
		prefix: cfg.StreamPrefix,
		maxLen: cfg.MaxLen,
	}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshalling event: %w", err)
	}

	for _, channel := range event.Channels {
		stream := s.prefix + string(channel)
		err := s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: s.maxLen,
			Approx: s.maxLen > 0,
			Values: map[string]interface{}{
				"event_id": event.ID.String(),
				"type":     string(event.Type),
				"payload":  string(payload),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("xadd %s: %w", stream, err)
		}
	}
	return nil
}
