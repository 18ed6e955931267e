package dispatcher

import (
	"chaldea/sources/metrics"
	"chaldea/sources/repository"
	"chaldea/sources/telegram"
	"chaldea/sources/tracing"
	"fmt"
	"sort"

	"go.uber.org/fx"
)

var Module = fx.Module("dispatcher",
	fx.Provide(
		NewPluginRegistry,
		NewDispatcher,
		func(d *Dispatcher) telegram.UpdateHandler { return d },
		func(r *repository.InvocationsRepository) Journal { return r },
	),
)

type Plugins struct {
	fx.In

	Commands []Command `group:"commands"`
	Events   []Event   `group:"events"`
}

// NewPluginRegistry registers every provided plugin. Value groups carry no order, so
// commands are registered by name and a conflict fails the boot.
func NewPluginRegistry(plugins Plugins, metrics *metrics.MetricsService, log *tracing.Logger) (*Registry, error) {
	registry := NewRegistry()

	commands := append([]Command(nil), plugins.Commands...)
	sort.SliceStable(commands, func(i, j int) bool {
		return normalize(commands[i].Meta().Name) < normalize(commands[j].Meta().Name)
	})

	for _, cmd := range commands {
		if err := registry.Register(cmd); err != nil {
			log.E("Failed to register command", tracing.CommandIssued, cmd.Meta().Name, tracing.InnerError, err)
			return nil, fmt.Errorf("register command %q: %w", cmd.Meta().Name, err)
		}
	}

	events := append([]Event(nil), plugins.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return normalize(events[i].Meta().Name) < normalize(events[j].Meta().Name)
	})

	for _, ev := range events {
		if err := registry.RegisterEvent(ev); err != nil {
			log.E("Failed to register event", tracing.EventIssued, ev.Meta().Name, tracing.InnerError, err)
			return nil, fmt.Errorf("register event %q: %w", ev.Meta().Name, err)
		}
	}

	metrics.SetRegisteredCommands(float64(registry.Len()))
	log.I("Plugins registered", "commands", registry.Len(), "events", len(events))
	return registry, nil
}
