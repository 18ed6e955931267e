package telegram

import (
	"chaldea/sources/configuration"
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the dispatcher and plugins talk to.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
}

func NewBotAPI(log *tracing.Logger, config *configuration.Config, client *http.Client, token string) (*tgbotapi.BotAPI, error) {
	if err := platform.ValidateTelegramBotToken(token); err != nil {
		return nil, err
	}

	endpoint := config.Telegram.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	if config.Telegram.APIEndpoint != "" {
		log.I("Telegram bot initialized with custom API endpoint", "api_endpoint", config.Telegram.APIEndpoint, tracing.InstanceBot, bot.Self.UserName)
	} else {
		log.I("Telegram bot initialized with default API endpoint", tracing.InstanceBot, bot.Self.UserName)
	}

	return bot, nil
}
