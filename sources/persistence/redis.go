package persistence

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns nil when redis is disabled; the throttler and session tables then
// stay in memory.
func NewRedis(config *configuration.Config, log *tracing.Logger) *redis.Client {
	if !config.Redis.Enabled {
		log.I("Redis disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:                  config.Redis.Host + ":" + strconv.Itoa(config.Redis.Port),
		Password:              config.Redis.Password,
		DB:                    config.Redis.DB,
		MaxRetries:            config.Redis.MaxRetries,
		DialTimeout:           config.Redis.DialTimeout,
		ContextTimeoutEnabled: true,
	})

	log.I("Redis client initialized successfully")
	return rdb
}
