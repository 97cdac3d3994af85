package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks per-user play cooldowns as TTL keys, so the window
// survives restarts and is shared across instances.
type CooldownStore struct {
	client *redis.Client
	window time.Duration
}

func NewCooldownStore(client *redis.Client, window time.Duration) *CooldownStore {
	return &CooldownStore{client: client, window: window}
}

func (c *CooldownStore) Remaining(ctx context.Context, userID string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, c.key(userID)).Result()
	if err != nil {
		return 0, err
	}
	// TTL returns a negative duration for missing or unexpiring keys.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (c *CooldownStore) MarkPlayed(ctx context.Context, userID string) error {
	return c.client.Set(ctx, c.key(userID), "1", c.window).Err()
}

func (c *CooldownStore) key(userID string) string {
	return "trivia:cooldown:" + userID
}
