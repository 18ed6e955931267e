package collector

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/metrics"
	"chaldea/sources/repository"
	"chaldea/sources/sessions"
	"chaldea/sources/throttler"
	"chaldea/sources/tracing"
	"context"
	"time"

	"go.uber.org/fx"
)

// StatsCollector refreshes the gauges that describe process-wide tables.
type StatsCollector struct {
	log         *tracing.Logger
	metrics     *metrics.MetricsService
	tables      *sessions.Tables
	throttler   throttler.Throttler
	registry    *dispatcher.Registry
	invocations *repository.InvocationsRepository
	stop        chan struct{}
}

func NewStatsCollector(
	lc fx.Lifecycle,
	log *tracing.Logger,
	metrics *metrics.MetricsService,
	tables *sessions.Tables,
	throttler throttler.Throttler,
	registry *dispatcher.Registry,
	invocations *repository.InvocationsRepository,
) *StatsCollector {
	s := &StatsCollector{
		log:         log,
		metrics:     metrics,
		tables:      tables,
		throttler:   throttler,
		registry:    registry,
		invocations: invocations,
		stop:        make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			return nil
		},
	})

	return s
}

func (s *StatsCollector) start() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	s.collectStats()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.collectStats()
		}
	}
}

func (s *StatsCollector) collectStats() {
	for _, table := range []sessions.Table{s.tables.Replies, s.tables.Callbacks} {
		if count, err := table.Count(s.log); err == nil {
			s.metrics.SetActiveSessions(table.Name(), float64(count))
		} else {
			s.log.E("Failed to collect session stats", tracing.SessionTable, table.Name(), tracing.InnerError, err)
		}
	}

	if memory, ok := s.throttler.(*throttler.MemoryThrottler); ok {
		s.metrics.SetCooldownEntries(float64(memory.Len()))
	}

	s.metrics.SetRegisteredCommands(float64(s.registry.Len()))

	if s.invocations.Enabled() {
		if count, err := s.invocations.CountSince(s.log, time.Now().Add(-24*time.Hour)); err == nil {
			s.metrics.SetInvocationsDaily(float64(count))
		} else {
			s.log.E("Failed to collect invocation stats", tracing.InnerError, err)
		}
	}
}
