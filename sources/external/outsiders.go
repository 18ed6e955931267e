package external

import (
	"chaldea/sources/configuration"
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outsiders struct {
	log    *tracing.Logger
	config *configuration.Config
	ss     *http.Server
	sms    *http.Server
	as     *http.Server
}

func NewOutsiders(log *tracing.Logger, config *configuration.Config) *Outsiders {
	systemRegistry := prometheus.NewRegistry()

	systemRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	outsiders := &Outsiders{
		log:    log,
		config: config,
		ss: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.Service.StartupPort),
			Handler: NewStartupHandler(log, platform.GetAppStartTime(), time.Now),
		},
	}

	if config.Service.SystemMetricsPort != 0 {
		outsiders.sms = &http.Server{
			Addr: fmt.Sprintf(":%d", config.Service.SystemMetricsPort),
			Handler: platform.Curry(http.NewServeMux, func(m *http.ServeMux) {
				m.Handle("/metrics", promhttp.HandlerFor(systemRegistry, promhttp.HandlerOpts{}))
			}),
		}
	}

	if config.Service.ApplicationMetricsPort != 0 {
		outsiders.as = &http.Server{
			Addr: fmt.Sprintf(":%d", config.Service.ApplicationMetricsPort),
			Handler: platform.Curry(http.NewServeMux, func(m *http.ServeMux) {
				m.Handle("/metrics", promhttp.Handler())
			}),
		}
	}

	return outsiders
}

// NewStartupHandler serves /, /health and /uptime.
func NewStartupHandler(log *tracing.Logger, started time.Time, now func() time.Time) http.Handler {
	return platform.Curry(http.NewServeMux, func(m *http.ServeMux) {
		m.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Chaldea Bot is running!"))
		})
		m.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			log.D("Outsider service got a ping", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(log, w, map[string]any{"status": "UP"})
		})
		m.HandleFunc("GET /uptime", func(w http.ResponseWriter, r *http.Request) {
			current := now()
			writeJSON(log, w, map[string]any{
				"uptime":       current.Sub(started).Seconds(),
				"uptime_human": humanize.RelTime(started, current, "", ""),
				"started_at":   started.UTC().Format(time.RFC3339),
				"version":      platform.GetAppVersion(),
				"build_time":   platform.GetAppBuildTime(),
			})
		})
	})
}

func writeJSON(log *tracing.Logger, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.E("Failed to write outsider response", tracing.InnerError, err)
	}
}

func (x *Outsiders) startup() {
	x.log.I("Startup server is starting", tracing.OutsiderKind, "startup", "port", x.config.Service.StartupPort)

	if err := x.ss.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		x.log.F("Failed to start startup server", tracing.OutsiderKind, "startup", tracing.InnerError, err)
	}
}

func (x *Outsiders) systemMetrics() {
	if x.sms == nil {
		return
	}
	x.log.I("System metrics server is starting", tracing.OutsiderKind, "system_metrics", "port", x.config.Service.SystemMetricsPort)

	if err := x.sms.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		x.log.F("Failed to start system metrics server", tracing.OutsiderKind, "system_metrics", tracing.InnerError, err)
	}
}

func (x *Outsiders) applicationMetrics() {
	if x.as == nil {
		return
	}
	x.log.I("Application metrics server is starting", tracing.OutsiderKind, "application_metrics", "port", x.config.Service.ApplicationMetricsPort)

	if err := x.as.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		x.log.F("Failed to start application metrics server", tracing.OutsiderKind, "application_metrics", tracing.InnerError, err)
	}
}
