package telegram

import (
	"chaldea/sources/tracing"
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("telegram",
	fx.Provide(
		NewInstances,
		NewDiplomat,
		NewMembers,
		NewTypingManager,
		NewNotifier,
		NewPoller,
	),

	fx.Invoke(func(lc fx.Lifecycle, poller *Poller, notifier *Notifier, diplomat *Diplomat, log *tracing.Logger) {
		stop := make(chan struct{})

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				poller.Start()
				log.I("Telegram pollers started")
				go notifier.NotifyStartup()
				go sweepLimiters(log, diplomat, stop)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				close(stop)
				poller.Stop(ctx)
				log.I("Telegram pollers stopped")
				return nil
			},
		})
	}),
)

func sweepLimiters(log *tracing.Logger, diplomat *Diplomat, stop <-chan struct{}) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if dropped := diplomat.Sweep(); dropped > 0 {
				log.D("Idle chat limiters dropped", "dropped", dropped)
			}
		}
	}
}
