package localization

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localesFS embed.FS

type LocalizationManager struct {
	bundle   *i18n.Bundle
	detector *LanguageDetector
	fallback string
	log      *tracing.Logger
}

func NewLocalizationManager(
	config *configuration.Config,
	detector *LanguageDetector,
	log *tracing.Logger,
) (*LocalizationManager, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	languages := append([]string{"en"}, config.Localization.SupportedLanguages...)
	loaded := map[string]bool{}

	for _, lang := range languages {
		if loaded[lang] {
			continue
		}
		filename := fmt.Sprintf("locales/active.%s.toml", lang)

		data, err := localesFS.ReadFile(filename)
		if err != nil {
			log.E("Failed to read locale file", "filename", filename, tracing.InnerError, err)
			return nil, fmt.Errorf("failed to read locale file %s: %w", filename, err)
		}

		if _, err := bundle.ParseMessageFileBytes(data, filename); err != nil {
			log.E("Failed to parse locale file", "filename", filename, tracing.InnerError, err)
			return nil, fmt.Errorf("failed to parse locale file %s: %w", filename, err)
		}

		loaded[lang] = true
		log.I("Loaded locale file", "filename", filename)
	}

	log.I("LocalizationManager initialized successfully")
	return &LocalizationManager{bundle: bundle, detector: detector, fallback: config.Localization.DefaultLanguage, log: log}, nil
}

func (x *LocalizationManager) GetLocalizer(code string) *i18n.Localizer {
	return i18n.NewLocalizer(x.bundle, x.detector.Detect(code), x.fallback, "en")
}

func (x *LocalizationManager) Localize(localizer *i18n.Localizer, messageID string) string {
	return x.LocalizeTd(localizer, messageID, nil)
}

func (x *LocalizationManager) LocalizeTd(localizer *i18n.Localizer, messageID string, templateData map[string]any) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: templateData})
	if err != nil {
		x.log.E("Failed to localize message", "message_id", messageID, tracing.InnerError, err)
		return messageID
	}

	return msg
}

// LocalizeBy picks the locale from the sender's Telegram language code.
func (x *LocalizationManager) LocalizeBy(user *tgbotapi.User, messageID string) string {
	return x.LocalizeByTd(user, messageID, nil)
}

func (x *LocalizationManager) LocalizeByTd(user *tgbotapi.User, messageID string, templateData map[string]any) string {
	code := ""
	if user != nil {
		code = user.LanguageCode
	}
	return x.LocalizeTd(x.GetLocalizer(code), messageID, templateData)
}
