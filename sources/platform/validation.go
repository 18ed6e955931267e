package platform

import (
	"fmt"
	"regexp"
)

var (
	TelegramBotTokenPattern = regexp.MustCompile(`^[0-9]+:AA[0-9A-Za-z\-_]{33}$`)
)

func ValidateTelegramBotToken(token string) error {
	if token == "" {
		return fmt.Errorf("Telegram Bot API token is required")
	}

	if !TelegramBotTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram Bot API token format: expected [0-9]+:AA[0-9A-Za-z\\-_]{33}")
	}

	return nil
}
