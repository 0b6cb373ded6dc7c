package chat

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chatrelay/internal/constants"
	"chatrelay/pkg/metrics"
)

// UnreadCounter tracks how many direct messages arrived for a user while no
// open session could receive them. Increment-only from the relay side; the
// count resets when the user reads.
type UnreadCounter interface {
	Increment(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (int64, error)
	Reset(ctx context.Context, userID string) error
}

type RedisUnreadCounter struct {
	client *redis.Client
}

func NewRedisUnreadCounter(client *redis.Client) *RedisUnreadCounter {
	return &RedisUnreadCounter{client: client}
}

func unreadKey(userID string) string {
	return constants.UnreadKeyPrefix + userID
}

func (c *RedisUnreadCounter) Increment(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to increment unread count: %w", err)
	}
	metrics.UnreadIncrementsTotal.Inc()
	return nil
}

func (c *RedisUnreadCounter) Get(ctx context.Context, userID string) (int64, error) {
	n, err := c.client.Get(ctx, unreadKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read unread count: %w", err)
	}
	return n, nil
}

func (c *RedisUnreadCounter) Reset(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	return nil
}
