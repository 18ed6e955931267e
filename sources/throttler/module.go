package throttler

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("throttler",
	fx.Provide(
		NewThrottler,
	),
)

func NewThrottler(lc fx.Lifecycle, config *configuration.Config, client *redis.Client, log *tracing.Logger) Throttler {
	if config.Dispatcher.Backend == "redis" && client != nil {
		log.I("Cooldown table backed by redis")
		return NewRedisThrottler(client)
	}

	memory := NewMemoryThrottler()
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go memory.sweepLoop(log, config.Dispatcher.SweepInterval, stop)
			log.I("Cooldown table kept in memory", "sweep_interval", config.Dispatcher.SweepInterval.String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})

	return memory
}

func (x *MemoryThrottler) sweepLoop(log *tracing.Logger, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if dropped := x.Sweep(); dropped > 0 {
				log.D("Cooldown table swept", "dropped", dropped, "remaining", x.Len())
			}
		}
	}
}
