package telegram

import (
	"chaldea/sources/configuration"
	"chaldea/sources/localization"
	"chaldea/sources/settings"
	"chaldea/sources/tracing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier tells the admins the bot is up. The first instance sends the DMs and
// delivery failures are only logged.
type Notifier struct {
	instances    *Instances
	diplomat     *Diplomat
	store        *settings.Store
	localization *localization.LocalizationManager
	config       *configuration.Config
	log          *tracing.Logger
}

func NewNotifier(instances *Instances, diplomat *Diplomat, store *settings.Store, localization *localization.LocalizationManager, config *configuration.Config, log *tracing.Logger) *Notifier {
	return &Notifier{instances: instances, diplomat: diplomat, store: store, localization: localization, config: config, log: log}
}

func (x *Notifier) Text(at time.Time) string {
	s := x.store.Settings()
	loc := s.Location()

	return x.localization.LocalizeTd(x.localization.GetLocalizer(""), "MsgStartup", map[string]any{
		"Instances": len(x.instances.All),
		"Time":      at.In(loc).Format("01/02/2006, 15:04:05"),
		"Zone":      loc.String(),
	})
}

// NotifyStartup returns the number of admins that were reached.
func (x *Notifier) NotifyStartup() int {
	if !x.config.Telegram.NotifyOnStartup {
		return 0
	}

	primary := x.instances.Primary()
	admins := x.store.Settings().AdminIDs()
	if primary == nil || len(admins) == 0 {
		return 0
	}

	text := x.Text(time.Now())
	log := primary.Logger(x.log)
	reached := 0

	for _, admin := range admins {
		msg := tgbotapi.NewMessage(admin, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := x.diplomat.Send(log, primary.Bot, primary.Self.ID, admin, msg); err != nil {
			log.W("Startup notification failed", tracing.UserId, admin, tracing.InnerError, err)
			continue
		}
		reached++
	}

	log.I("Startup notification sent", "reached", reached, "admins", len(admins))
	return reached
}
