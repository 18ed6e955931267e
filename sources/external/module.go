package external

import (
	"chaldea/sources/tracing"
	"context"
	"net/http"

	"go.uber.org/fx"
)

var Module = fx.Module("external",
	fx.Provide(
		NewOutsiders,
	),

	fx.Invoke(func(outsiders *Outsiders, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				outsiders.log.I("Starting outsiders services")
				go outsiders.startup()
				go outsiders.systemMetrics()
				go outsiders.applicationMetrics()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				outsiders.log.I("Stopping outsiders services")
				shutdown(ctx, outsiders.log, "startup", outsiders.ss)
				shutdown(ctx, outsiders.log, "system_metrics", outsiders.sms)
				shutdown(ctx, outsiders.log, "application_metrics", outsiders.as)
				return nil
			},
		})
	}),
)

func shutdown(ctx context.Context, log *tracing.Logger, kind string, server *http.Server) {
	if server == nil {
		return
	}
	if err := server.Shutdown(ctx); err != nil {
		log.E("Failed to shutdown outsider server", tracing.OutsiderKind, kind, tracing.InnerError, err)
	}
}
