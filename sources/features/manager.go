package features

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"context"
	"time"

	"github.com/Unleash/unleash-client-go/v4"
)

const (
	CommandTogglePrefix = "commands/"
	FeatureJournal      = "dispatcher/journal"
	FeatureDevMode      = "dispatcher/devmode"
)

// FeatureManager answers runtime toggles. Without an Unleash URL it serves the static
// overrides only and every other toggle resolves to its fallback.
type FeatureManager struct {
	client    *unleash.Client
	overrides map[string]bool
	log       *tracing.Logger
}

func NewFeatureManager(config *configuration.Config, log *tracing.Logger) (*FeatureManager, error) {
	if config.Features.UnleashAPIURL == "" {
		log.I("Unleash not configured, feature toggles use fallbacks")
		return NewStaticFeatureManager(log, nil), nil
	}

	refresh := config.Features.RefreshInterval
	if refresh <= 0 {
		refresh = 5
	}
	appName := config.Features.UnleashAppName
	if appName == "" {
		appName = "chaldea"
	}

	client, err := unleash.NewClient(
		unleash.WithUrl(config.Features.UnleashAPIURL),
		unleash.WithAppName(appName),
		unleash.WithInstanceId(config.Features.UnleashInstanceID),
		unleash.WithRefreshInterval(time.Duration(refresh)*time.Second),
		unleash.WithListener(&unleashListener{log: log}),
	)

	if err != nil {
		log.E("Failed to initialize Unleash client", tracing.InnerError, err)
		return nil, err
	}

	log.I("Unleash client initialized successfully",
		"api_url", config.Features.UnleashAPIURL,
		"app_name", appName,
		"instance_id", config.Features.UnleashInstanceID,
		"refresh_interval", refresh,
	)

	return &FeatureManager{
		client: client,
		log:    log,
	}, nil
}

func NewStaticFeatureManager(log *tracing.Logger, overrides map[string]bool) *FeatureManager {
	return &FeatureManager{overrides: overrides, log: log}
}

func (f *FeatureManager) IsEnabled(featureName string) bool {
	return f.IsEnabledDefault(featureName, false)
}

func (f *FeatureManager) IsEnabledDefault(featureName string, defaultValue bool) bool {
	if value, ok := f.overrides[featureName]; ok {
		return value
	}
	if f.client == nil {
		return defaultValue
	}
	return f.client.IsEnabled(featureName, unleash.WithFallback(defaultValue))
}

// CommandEnabled reports whether a command may run; commands are on unless toggled off.
func (f *FeatureManager) CommandEnabled(name string) bool {
	return f.IsEnabledDefault(CommandTogglePrefix+name, true)
}

func (f *FeatureManager) Close() error {
	if f.client == nil {
		return nil
	}
	f.log.I("Closing Unleash client")
	return f.client.Close()
}

type unleashListener struct {
	log *tracing.Logger
}

func (l *unleashListener) OnReady() {
	l.log.I("Unleash client ready")
}

func (l *unleashListener) OnError(err error) {
	l.log.E("Unleash client error", tracing.InnerError, err)
}

func (l *unleashListener) OnWarning(warning error) {
	l.log.W("Unleash client warning", tracing.InnerError, warning)
}

func (l *unleashListener) OnCount(name string, enabled bool) {
}

func (l *unleashListener) OnSent(payload unleash.MetricsData) {
}

func (l *unleashListener) OnRegistered(payload unleash.ClientData) {
	l.log.I("Unleash client registered", "instance_id", payload.InstanceID)
}

func (f *FeatureManager) OnStop(ctx context.Context) error {
	return f.Close()
}
