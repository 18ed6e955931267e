package telegram

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

// UpdateHandler processes one update received by one instance.
type UpdateHandler interface {
	Handle(log *tracing.Logger, instance *Instance, update tgbotapi.Update)
}

// Poller long-polls every instance. Each update runs in its own goroutine, bounded
// by MaxInFlight, so a slow plugin never holds up receipt of the next update.
type Poller struct {
	instances *Instances
	handler   UpdateHandler
	config    *configuration.Config
	log       *tracing.Logger
	sem       *semaphore.Weighted
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewPoller(instances *Instances, handler UpdateHandler, config *configuration.Config, log *tracing.Logger) *Poller {
	limit := int64(config.Telegram.MaxInFlight)
	if limit < 1 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		instances: instances,
		handler:   handler,
		config:    config,
		log:       log,
		sem:       semaphore.NewWeighted(limit),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (x *Poller) Start() {
	for _, instance := range x.instances.All {
		if instance.api == nil {
			continue
		}
		go x.poll(instance)
	}
}

func (x *Poller) poll(instance *Instance) {
	update := tgbotapi.NewUpdate(0)
	update.Timeout = x.config.Telegram.PollerTimeout
	update.AllowedUpdates = x.config.Telegram.AllowedUpdates

	log := instance.Logger(x.log)
	log.I("Instance is listening")

	x.consume(log, instance, instance.api.GetUpdatesChan(update))
}

// consume hands every update to the handler until updates closes or the poller stops.
func (x *Poller) consume(log *tracing.Logger, instance *Instance, updates <-chan tgbotapi.Update) {
	for update := range updates {
		if err := x.sem.Acquire(x.ctx, 1); err != nil {
			log.W("Update dropped on shutdown", tracing.UpdateId, update.UpdateID, tracing.InnerError, err)
			return
		}
		x.wg.Add(1)

		go func() {
			defer func() {
				x.sem.Release(1)
				x.wg.Done()
			}()
			x.handler.Handle(log.With(tracing.UpdateId, update.UpdateID), instance, update)
		}()
	}
}

// Stop ends polling and waits for in-flight updates until ctx expires.
func (x *Poller) Stop(ctx context.Context) {
	x.cancel()
	for _, instance := range x.instances.All {
		if instance.api != nil {
			instance.api.StopReceivingUpdates()
		}
	}

	done := make(chan struct{})
	go func() {
		x.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		x.log.W("Stopped before in-flight updates finished", tracing.InnerError, ctx.Err())
	}
}
