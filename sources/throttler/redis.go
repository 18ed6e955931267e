package throttler

import (
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottler stores one key per (command, user) with the window as TTL, so the
// check-then-set is a single SET NX on the server.
type RedisThrottler struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisThrottler(client *redis.Client) *RedisThrottler {
	return &RedisThrottler{client: client, ctx: context.Background()}
}

// Acquire retries the SET NX once when the key expires between the SET NX and the
// PTTL, so an elapsed window is never reported as a fresh one.
func (x *RedisThrottler) Acquire(log *tracing.Logger, command string, userID int64, window time.Duration) (time.Duration, bool) {
	ctx, cancel := platform.ContextTimeout(x.ctx)
	defer cancel()

	key := fmt.Sprintf("cooldown:%s:%d", command, userID)

	for attempt := 0; attempt < 2; attempt++ {
		success, err := x.client.SetNX(ctx, key, time.Now().UnixMilli(), window).Result()
		if err != nil {
			log.E("Error setting cooldown key", tracing.InnerError, err)
			return 0, true
		}
		if success {
			return 0, true
		}

		ttl, err := x.client.PTTL(ctx, key).Result()
		if err != nil {
			log.E("Error reading cooldown ttl", tracing.InnerError, err)
			return window, false
		}
		if ttl > 0 {
			return ttl, false
		}
		log.D("Cooldown key vanished before its ttl was read", tracing.CommandIssued, command, tracing.UserId, userID, "ttl", ttl.String())
	}
	return window, false
}
