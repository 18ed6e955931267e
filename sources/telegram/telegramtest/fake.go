// Package telegramtest provides an in-memory Bot API for tests.
package telegramtest

import (
	"chaldea/sources/configuration"
	"chaldea/sources/metrics"
	"chaldea/sources/telegram"
	"chaldea/sources/tracing"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrUnavailable = errors.New("telegram unavailable")

// Bot records every outbound chattable and answers with incrementing message ids.
type Bot struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	results  []tgbotapi.Message
	requests []tgbotapi.Chattable

	// Statuses maps user ids to chat member statuses ("administrator", "creator", ...).
	Statuses  map[int64]string
	MemberErr error
	SendErr   error
	Title     string
	Count     int
}

func NewBot() *Bot {
	return &Bot{nextID: 1000, Statuses: map[int64]string{}, Title: "Test Group", Count: 10}
}

func (b *Bot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SendErr != nil {
		return tgbotapi.Message{}, b.SendErr
	}

	b.sent = append(b.sent, c)
	b.nextID++
	chatID := chatOf(c)
	msg := tgbotapi.Message{MessageID: b.nextID, Chat: &tgbotapi.Chat{ID: chatID, Type: chatKind(chatID)}, Text: textOf(c)}
	b.results = append(b.results, msg)
	return msg, nil
}

// Last returns the message returned by the most recent Send.
func (b *Bot) Last() (tgbotapi.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.results) == 0 {
		return tgbotapi.Message{}, false
	}
	return b.results[len(b.results)-1], true
}

func (b *Bot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SendErr != nil {
		return nil, b.SendErr
	}

	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *Bot) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	return tgbotapi.Chat{ID: config.ChatID, Title: b.Title, Type: "supergroup"}, nil
}

func (b *Bot) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.MemberErr != nil {
		return tgbotapi.ChatMember{}, b.MemberErr
	}

	status, ok := b.Statuses[config.UserID]
	if !ok {
		status = "member"
	}
	return tgbotapi.ChatMember{User: &tgbotapi.User{ID: config.UserID}, Status: status}, nil
}

func (b *Bot) GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error) {
	return b.Count, nil
}

func (b *Bot) Sent() []tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), b.sent...)
}

func (b *Bot) Requests() []tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), b.requests...)
}

// Texts returns the text of every sent message in order.
func (b *Bot) Texts() []string {
	var texts []string
	for _, c := range b.Sent() {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

// Messages returns every sent text message.
func (b *Bot) Messages() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, c := range b.Sent() {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (b *Bot) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent, b.results, b.requests = nil, nil, nil
}

func chatOf(c tgbotapi.Chattable) int64 {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		return v.ChatID
	case tgbotapi.PhotoConfig:
		return v.ChatID
	case tgbotapi.DocumentConfig:
		return v.ChatID
	}
	return 0
}

func chatKind(chatID int64) string {
	if chatID < 0 {
		return "supergroup"
	}
	return "private"
}

func textOf(c tgbotapi.Chattable) string {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		return msg.Text
	}
	return ""
}

// Config returns the parsed default configuration with limits high enough for tests.
func Config() *configuration.Config {
	config, err := configuration.Parse([]byte("{}"))
	if err != nil {
		panic(err)
	}
	config.Telegram.GlobalRPS = 1e6
	config.Telegram.GlobalBurst = 1e6
	config.Telegram.ChatRPS = 1e6
	config.Telegram.ChatBurst = 1e6
	return config
}

// Instances builds total instances sharing bot, each with its own user id.
func Instances(bot telegram.BotAPI, total int, username string) []*telegram.Instance {
	out := make([]*telegram.Instance, total)
	for i := range out {
		out[i] = telegram.NewInstance(i, total, bot, tgbotapi.User{ID: int64(9000 + i), UserName: username, IsBot: true, FirstName: "Chaldea"})
	}
	return out
}

func Diplomat(config *configuration.Config) *telegram.Diplomat {
	return telegram.NewDiplomat(config, metrics.NewMetricsService(tracing.NewDiscardLogger()))
}
