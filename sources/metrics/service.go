package metrics

import (
	"chaldea/sources/tracing"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MetricsService struct {
	log *tracing.Logger
}

var (
	updatesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_updates_handled_total",
			Help: "Total number of updates handled by the pollers",
		},
		[]string{"instance", "kind"},
	)

	updatesIgnored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_updates_ignored_total",
			Help: "Total number of updates dropped before any plugin ran",
		},
		[]string{"reason"},
	)

	commandsUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_commands_used_total",
			Help: "Total number of commands invoked",
		},
		[]string{"command"},
	)

	commandsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_commands_rejected_total",
			Help: "Total number of invocations rejected by resolution, gate or cooldown",
		},
		[]string{"reason"},
	)

	pluginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_plugin_failures_total",
			Help: "Total number of plugin errors and panics",
		},
		[]string{"plugin", "hook"},
	)

	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaldea_messages_sent_total",
			Help: "Total number of outbound calls made by the diplomat",
		},
		[]string{"status"},
	)

	updateProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaldea_update_processing_duration_seconds",
			Help:    "Total duration of update processing",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaldea_active_sessions",
			Help: "Number of live reply and callback correlation entries",
		},
		[]string{"table"},
	)

	cooldownEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaldea_cooldown_entries",
			Help: "Number of tracked cooldown entries",
		},
	)

	registeredCommands = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaldea_registered_commands",
			Help: "Number of commands in the registry",
		},
	)

	invocationsDaily = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chaldea_invocations_daily",
			Help: "Journaled invocations in the last 24h",
		},
	)
)

func init() {
	prometheus.MustRegister(updatesHandled)
	prometheus.MustRegister(updatesIgnored)
	prometheus.MustRegister(commandsUsed)
	prometheus.MustRegister(commandsRejected)
	prometheus.MustRegister(pluginFailures)
	prometheus.MustRegister(messagesSent)
	prometheus.MustRegister(updateProcessingDuration)
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(cooldownEntries)
	prometheus.MustRegister(registeredCommands)
	prometheus.MustRegister(invocationsDaily)
}

func NewMetricsService(log *tracing.Logger) *MetricsService {
	return &MetricsService{
		log: log,
	}
}

func (s *MetricsService) RecordUpdateHandled(instance int, kind string) {
	updatesHandled.WithLabelValues(strconv.Itoa(instance), kind).Inc()
}

func (s *MetricsService) RecordUpdateIgnored(reason string) {
	updatesIgnored.WithLabelValues(reason).Inc()
}

func (s *MetricsService) RecordCommandUsed(command string) {
	commandsUsed.WithLabelValues(command).Inc()
}

func (s *MetricsService) RecordCommandRejected(reason string) {
	commandsRejected.WithLabelValues(reason).Inc()
}

func (s *MetricsService) RecordPluginFailure(plugin string, hook string) {
	pluginFailures.WithLabelValues(plugin, hook).Inc()
}

func (s *MetricsService) RecordMessageSent(status string) {
	messagesSent.WithLabelValues(status).Inc()
}

func (s *MetricsService) RecordUpdateProcessingDuration(duration time.Duration) {
	updateProcessingDuration.Observe(duration.Seconds())
}

func (s *MetricsService) SetActiveSessions(table string, count float64) {
	activeSessions.WithLabelValues(table).Set(count)
}

func (s *MetricsService) SetCooldownEntries(count float64) {
	cooldownEntries.Set(count)
}

func (s *MetricsService) SetRegisteredCommands(count float64) {
	registeredCommands.Set(count)
}

func (s *MetricsService) SetInvocationsDaily(count float64) {
	invocationsDaily.Set(count)
}
