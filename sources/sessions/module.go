package sessions

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sessions",
	fx.Provide(
		NewTables,
	),
)

func NewTables(lc fx.Lifecycle, config *configuration.Config, client *redis.Client, log *tracing.Logger) *Tables {
	ttl := config.Dispatcher.SessionTTL

	if config.Dispatcher.Backend == "redis" && client != nil {
		log.I("Session tables backed by redis", "ttl", ttl.String())
		return &Tables{
			Replies:   NewRedisTable(RepliesTable, ttl, client),
			Callbacks: NewRedisTable(CallbacksTable, ttl, client),
		}
	}

	replies := NewMemoryTable(RepliesTable, ttl)
	callbacks := NewMemoryTable(CallbacksTable, ttl)
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go sweepLoop(log, config.Dispatcher.SweepInterval, stop, replies, callbacks)
			log.I("Session tables kept in memory", "ttl", ttl.String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})

	return &Tables{Replies: replies, Callbacks: callbacks}
}

func sweepLoop(log *tracing.Logger, interval time.Duration, stop <-chan struct{}, tables ...*MemoryTable) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, table := range tables {
				if dropped := table.Sweep(); dropped > 0 {
					log.D("Session table swept", tracing.SessionTable, table.Name(), "dropped", dropped)
				}
			}
		}
	}
}
