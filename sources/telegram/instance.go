package telegram

import (
	"chaldea/sources/configuration"
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

var ErrNoTokens = errors.New("no telegram bot tokens configured")

// Instance is one bot session. Group chats are partitioned between instances by
// |chatID| mod Total; private chats belong to whichever instance receives them.
type Instance struct {
	Index int
	Total int
	Bot   BotAPI
	Self  tgbotapi.User

	api *tgbotapi.BotAPI
}

func NewInstance(index, total int, bot BotAPI, self tgbotapi.User) *Instance {
	return &Instance{Index: index, Total: total, Bot: bot, Self: self}
}

func (x *Instance) Username() string {
	return x.Self.UserName
}

// Owns reports whether this instance handles updates from chat.
func (x *Instance) Owns(chat *tgbotapi.Chat) bool {
	if chat == nil {
		return false
	}
	return Owns(chat.ID, chat.Type == platform.ChatPrivate, x.Index, x.Total)
}

// Owns is the sharding rule. The absolute value is taken in uint64 so the most
// negative id does not overflow.
func Owns(chatID int64, private bool, index, total int) bool {
	if private || total <= 1 {
		return true
	}

	abs := uint64(chatID)
	if chatID < 0 {
		abs = uint64(-(chatID + 1)) + 1
	}
	return abs%uint64(total) == uint64(index)
}

func (x *Instance) Logger(log *tracing.Logger) *tracing.Logger {
	return log.With(tracing.InstanceIndex, x.Index, tracing.InstanceTotal, x.Total, tracing.InstanceBot, x.Self.UserName)
}

type Instances struct {
	All []*Instance
}

// NewInstances connects one session per configured token. All sessions are
// initialized concurrently; any failure aborts the boot.
func NewInstances(log *tracing.Logger, config *configuration.Config, client *http.Client) (*Instances, error) {
	tokens := make([]string, 0, len(config.Telegram.Tokens))
	for _, token := range config.Telegram.Tokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		log.E("No telegram tokens configured")
		return nil, ErrNoTokens
	}

	all := make([]*Instance, len(tokens))
	g, _ := errgroup.WithContext(context.Background())

	for i, token := range tokens {
		g.Go(func() error {
			bot, err := NewBotAPI(log.With(tracing.InstanceIndex, i), config, client, token)
			if err != nil {
				return fmt.Errorf("instance %d: %w", i, err)
			}
			all[i] = &Instance{Index: i, Total: len(tokens), Bot: bot, Self: bot.Self, api: bot}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.E("Failed to initialize bot instances", tracing.InnerError, err)
		return nil, err
	}

	log.I("Bot instances initialized", tracing.InstanceTotal, len(all))
	return &Instances{All: all}, nil
}

func (x *Instances) Primary() *Instance {
	if len(x.All) == 0 {
		return nil
	}
	return x.All[0]
}
