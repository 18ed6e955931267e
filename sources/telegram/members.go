package telegram

import (
	"chaldea/sources/tracing"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker/v2"
)

// Members looks up chat membership. Each bot session gets its own circuit breaker so
// a failing token does not block lookups through the others.
type Members struct {
	log      *tracing.Logger
	mu       sync.Mutex
	breakers map[int]*gobreaker.CircuitBreaker[tgbotapi.ChatMember]
}

func NewMembers(log *tracing.Logger) *Members {
	return &Members{log: log, breakers: make(map[int]*gobreaker.CircuitBreaker[tgbotapi.ChatMember])}
}

func (x *Members) breaker(instance *Instance) *gobreaker.CircuitBreaker[tgbotapi.ChatMember] {
	x.mu.Lock()
	defer x.mu.Unlock()

	if cb, ok := x.breakers[instance.Index]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[tgbotapi.ChatMember](gobreaker.Settings{
		Name:        fmt.Sprintf("chat-member-%d", instance.Index),
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests >= 10 {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			x.log.W("Chat member breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	x.breakers[instance.Index] = cb
	return cb
}

func (x *Members) Get(log *tracing.Logger, instance *Instance, chatID int64, userID int64) (tgbotapi.ChatMember, error) {
	defer tracing.ProfilePoint(log, "Chat member lookup completed", "telegram.members.get", tracing.ChatId, chatID, tracing.UserId, userID)()

	return x.breaker(instance).Execute(func() (tgbotapi.ChatMember, error) {
		return instance.Bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
		})
	})
}

// IsAdmin reports whether the user is an administrator or the creator of the chat.
func (x *Members) IsAdmin(log *tracing.Logger, instance *Instance, chatID int64, userID int64) (bool, error) {
	member, err := x.Get(log, instance, chatID, userID)
	if err != nil {
		return false, err
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}
