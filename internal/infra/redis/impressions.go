package redis

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// ImpressionCounter counts gate entries per user, backing the sponsored
// interstitial. Record matches the app.GateHook signature.
type ImpressionCounter struct {
	client *redis.Client
}

func NewImpressionCounter(client *redis.Client) *ImpressionCounter {
	return &ImpressionCounter{client: client}
}

func (c *ImpressionCounter) Record(identity string) {
	ctx := context.Background()
	pipe := c.client.Pipeline()
	pipe.Incr(ctx, "trivia:gate:impressions")
	pipe.Incr(ctx, "trivia:gate:impressions:"+identity)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("record gate impression: %v", err)
	}
}
