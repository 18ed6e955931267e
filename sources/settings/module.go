package settings

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("settings",
	fx.Provide(
		NewSettingsDocument,
		NewVipDocument,
		NewStore,
	),
)

func NewSettingsDocument(config *configuration.Config, log *tracing.Logger) (*Document[Settings], error) {
	doc, err := OpenDocument(config.Dispatcher.SettingsPath, Settings{Prefix: "/", TimeZone: "UTC"})
	if err != nil {
		log.E("Failed to load settings", tracing.InnerError, err, "path", config.Dispatcher.SettingsPath)
		return nil, err
	}

	s := doc.Get()
	log.I("Settings loaded", "path", doc.Path(), "prefix", s.Prefix, "owners", len(s.Owners()), "admins", len(s.Admin), "dev_mode", s.DevMode)
	return doc, nil
}

func NewVipDocument(config *configuration.Config, log *tracing.Logger) (*Document[VIP], error) {
	doc, err := OpenDocument(config.Dispatcher.VipPath, VIP{UID: []string{}})
	if err != nil {
		log.E("Failed to load vip list", tracing.InnerError, err, "path", config.Dispatcher.VipPath)
		return nil, err
	}

	log.I("VIP list loaded", "path", doc.Path(), "count", len(doc.Get().UID))
	return doc, nil
}
