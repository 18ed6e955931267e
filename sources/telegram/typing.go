package telegram

import (
	"chaldea/sources/tracing"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TypingManager keeps a typing indicator alive in a chat while a slow command runs.
type TypingManager struct {
	diplomat *Diplomat
	active   map[string]chan struct{}
	mu       sync.Mutex
	log      *tracing.Logger
}

func NewTypingManager(diplomat *Diplomat, log *tracing.Logger) *TypingManager {
	return &TypingManager{
		diplomat: diplomat,
		active:   make(map[string]chan struct{}),
		log:      log,
	}
}

// Start begins the indicator and returns the function that stops it.
func (tm *TypingManager) Start(instance *Instance, chatID int64) func() {
	key := fmt.Sprintf("%d:%d", instance.Index, chatID)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.active[key]; exists {
		return func() {}
	}

	stopCh := make(chan struct{})
	tm.active[key] = stopCh

	go tm.typingLoop(instance, chatID, stopCh)
	return func() { tm.stop(key) }
}

func (tm *TypingManager) stop(key string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if stopCh, exists := tm.active[key]; exists {
		close(stopCh)
		delete(tm.active, key)
	}
}

func (tm *TypingManager) typingLoop(instance *Instance, chatID int64, stopCh chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	tm.sendTyping(instance, chatID)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tm.sendTyping(instance, chatID)
		}
	}
}

func (tm *TypingManager) sendTyping(instance *Instance, chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := tm.diplomat.Request(tm.log, instance.Bot, instance.Self.ID, chatID, action); err != nil {
		tm.log.W("Failed to send typing action", tracing.InnerError, err, tracing.ChatId, chatID)
	}
}
