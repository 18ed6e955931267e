package sessions

import (
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPayload  = errors.New("invalid callback payload")
	ErrPayloadTooLong  = errors.New("callback payload exceeds 64 bytes")
)

const (
	RepliesTable   = "replies"
	CallbacksTable = "callbacks"
)

// Entry links an interactive message to the command and user that may act on a
// follow-up. Payload carries whatever the command needs to resume.
type Entry struct {
	Command   string            `json:"command"`
	UserID    int64             `json:"user_id"`
	ChatID    int64             `json:"chat_id"`
	MessageID int               `json:"message_id"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (e Entry) Value(key string) string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload[key]
}

// Table is a TTL-bounded correlation table. Get returns ErrSessionNotFound for missing
// and expired keys alike.
type Table interface {
	Name() string
	Put(log *tracing.Logger, key string, entry Entry) error
	Get(log *tracing.Logger, key string) (Entry, error)
	Update(log *tracing.Logger, key string, mutate func(*Entry)) error
	Delete(log *tracing.Logger, key string) error
	Count(log *tracing.Logger) (int, error)
}

// Tables groups the two tables every bot instance of the process shares.
type Tables struct {
	Replies   Table
	Callbacks Table
}

// MessageKey identifies a sent message; message ids are only unique within a chat.
func MessageKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// NewToken returns a short opaque token that fits into callback_data together with a
// command name and a few arguments.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
