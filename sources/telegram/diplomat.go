package telegram

import (
	"chaldea/sources/configuration"
	"chaldea/sources/metrics"
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Diplomat is the single outbound path: every call waits for the bot-wide and the
// per-chat limiter, then goes to the Bot API and is counted.
type Diplomat struct {
	config  *configuration.Config
	metrics *metrics.MetricsService

	mu     sync.Mutex
	global map[int64]*rate.Limiter
	chats  map[string]*chatLimiter
}

func NewDiplomat(config *configuration.Config, metrics *metrics.MetricsService) *Diplomat {
	return &Diplomat{
		config:  config,
		metrics: metrics,
		global:  make(map[int64]*rate.Limiter),
		chats:   make(map[string]*chatLimiter),
	}
}

// Send delivers a message-producing chattable on behalf of bot.
func (x *Diplomat) Send(log *tracing.Logger, bot BotAPI, self int64, chatID int64, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	defer tracing.ProfilePoint(log, "Diplomat send completed", "diplomat.send", tracing.ChatId, chatID)()

	if err := x.wait(self, chatID); err != nil {
		x.metrics.RecordMessageSent("throttled")
		return tgbotapi.Message{}, err
	}

	msg, err := bot.Send(c)
	if err != nil {
		log.E("Message sending error", tracing.InnerError, err)
		x.metrics.RecordMessageSent("error")
		return msg, err
	}

	x.metrics.RecordMessageSent("success")
	return msg, nil
}

// Request delivers a chattable whose result is not a message (edits that return true,
// deletes, actions, callback answers).
func (x *Diplomat) Request(log *tracing.Logger, bot BotAPI, self int64, chatID int64, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	defer tracing.ProfilePoint(log, "Diplomat request completed", "diplomat.request", tracing.ChatId, chatID)()

	if err := x.wait(self, chatID); err != nil {
		x.metrics.RecordMessageSent("throttled")
		return nil, err
	}

	res, err := bot.Request(c)
	if err != nil {
		log.E("Request sending error", tracing.InnerError, err)
		x.metrics.RecordMessageSent("error")
		return res, err
	}

	x.metrics.RecordMessageSent("success")
	return res, nil
}

func (x *Diplomat) wait(self int64, chatID int64) error {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 30*time.Second)
	defer cancel()

	global, chat := x.limiters(self, chatID)
	if err := global.Wait(ctx); err != nil {
		return fmt.Errorf("global rate limit: %w", err)
	}
	if err := chat.Wait(ctx); err != nil {
		return fmt.Errorf("chat rate limit: %w", err)
	}
	return nil
}

func (x *Diplomat) limiters(self int64, chatID int64) (*rate.Limiter, *rate.Limiter) {
	x.mu.Lock()
	defer x.mu.Unlock()

	global, ok := x.global[self]
	if !ok {
		global = rate.NewLimiter(rate.Limit(x.config.Telegram.GlobalRPS), x.config.Telegram.GlobalBurst)
		x.global[self] = global
	}

	key := fmt.Sprintf("%d:%d", self, chatID)
	entry, ok := x.chats[key]
	if !ok {
		entry = &chatLimiter{limiter: rate.NewLimiter(rate.Limit(x.config.Telegram.ChatRPS), x.config.Telegram.ChatBurst)}
		x.chats[key] = entry
	}
	entry.lastSeen = time.Now()

	return global, entry.limiter
}

// Sweep forgets per-chat limiters idle for longer than limiterIdle.
func (x *Diplomat) Sweep() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	dropped := 0
	horizon := time.Now().Add(-limiterIdle)
	for key, entry := range x.chats {
		if entry.lastSeen.Before(horizon) {
			delete(x.chats, key)
			dropped++
		}
	}
	return dropped
}
