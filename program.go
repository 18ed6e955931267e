package main

import (
	"chaldea/sources/commands"
	"chaldea/sources/configuration"
	"chaldea/sources/dispatcher"
	"chaldea/sources/external"
	"chaldea/sources/features"
	"chaldea/sources/localization"
	"chaldea/sources/metrics"
	"chaldea/sources/metrics/collector"
	"chaldea/sources/network"
	"chaldea/sources/persistence"
	"chaldea/sources/platform"
	"chaldea/sources/repository"
	"chaldea/sources/sessions"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/throttler"
	"chaldea/sources/tracing"
	"context"
	"time"

	"go.uber.org/fx"
)

var (
	version   = "0.0.0"
	buildTime = "1970-01-01"
)

func main() {
	platform.SetAppManifest(version, buildTime, time.Now())

	fx.New(
		tracing.Module,
		configuration.Module,
		external.Module,
		network.Module,
		persistence.Module,
		repository.Module,
		features.Module,
		localization.Module,
		metrics.Module,
		settings.Module,
		throttler.Module,
		sessions.Module,
		telegram.Module,
		dispatcher.Module,
		commands.Module,
		collector.Module,

		fx.Invoke(func(lc fx.Lifecycle, log *tracing.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.I("Chaldea started successfully", "version", version, "build_time", buildTime)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.I("Chaldea stopped", "version", version, "build_time", buildTime)
					return nil
				},
			})
		}),
	).Run()
}
