package localization

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"

	"golang.org/x/text/language"
)

// LanguageDetector maps a Telegram language_code onto one of the supported locales.
type LanguageDetector struct {
	matcher   language.Matcher
	supported []language.Tag
	log       *tracing.Logger
}

func NewLanguageDetector(config *configuration.Config, log *tracing.Logger) *LanguageDetector {
	tags := []language.Tag{language.Make(config.Localization.DefaultLanguage)}
	for _, lang := range config.Localization.SupportedLanguages {
		tag := language.Make(lang)
		if tag != tags[0] {
			tags = append(tags, tag)
		}
	}

	log.I("Language detector initialized", "languages", len(tags))
	return &LanguageDetector{matcher: language.NewMatcher(tags), supported: tags, log: log}
}

// Detect returns the base language of the closest supported locale; an empty or
// unknown code yields the default language.
func (x *LanguageDetector) Detect(code string) string {
	if code == "" {
		return x.base(x.supported[0])
	}

	tag, err := language.Parse(code)
	if err != nil {
		x.log.D("Unparseable language code", "code", code, tracing.InnerError, err)
		return x.base(x.supported[0])
	}

	_, index, confidence := x.matcher.Match(tag)
	if confidence == language.No {
		return x.base(x.supported[0])
	}
	return x.base(x.supported[index])
}

func (x *LanguageDetector) base(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
