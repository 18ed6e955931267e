package dispatcher

import (
	"chaldea/sources/localization"
	"chaldea/sources/sessions"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/tracing"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Invocation is what every plugin hook receives.
type Invocation struct {
	Log      *tracing.Logger
	Instance *telegram.Instance
	Bot      telegram.BotAPI
	Response *telegram.Response
	Message  *tgbotapi.Message
	Sender   *tgbotapi.User
	ChatID   int64
	UserID   int64
	Settings settings.Settings
	Store    *settings.Store
	Registry *Registry
	Tables   *sessions.Tables
	Role     Role

	command      string
	localization *localization.LocalizationManager
}

// T localizes a message id for the sender.
func (x *Invocation) T(id string, data ...map[string]any) string {
	var td map[string]any
	if len(data) > 0 {
		td = data[0]
	}
	return x.localization.LocalizeByTd(x.Sender, id, td)
}

func (x *Invocation) IsOwner() bool {
	return x.Role == RoleOwner
}

func (x *Invocation) entry(messageID int, payload map[string]string) sessions.Entry {
	return sessions.Entry{
		Command:   x.command,
		UserID:    x.UserID,
		ChatID:    x.ChatID,
		MessageID: messageID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// ExpectReply routes replies to sent back to the current command's OnReply.
func (x *Invocation) ExpectReply(sent tgbotapi.Message, payload map[string]string) error {
	key := sessions.MessageKey(x.ChatID, sent.MessageID)
	return x.Tables.Replies.Put(x.Log, key, x.entry(sent.MessageID, payload))
}

// CallbackData opens a token keyed callback session and returns the button data.
func (x *Invocation) CallbackData(payload map[string]string, args ...string) (string, error) {
	token := sessions.NewToken()
	data, err := sessions.Encode(sessions.Payload{Command: x.command, Token: token, Args: args})
	if err != nil {
		return "", err
	}
	if err := x.Tables.Callbacks.Put(x.Log, token, x.entry(0, payload)); err != nil {
		return "", err
	}
	return data, nil
}

// MessageCallbackData is CallbackData keyed by the message carrying the button. With
// messageID 0 it returns placeholder data without opening a session, which is what
// the first pass of Response.ReplyInteractive needs.
func (x *Invocation) MessageCallbackData(messageID int, payload map[string]string, args ...string) (string, error) {
	token := ""
	if messageID != 0 {
		token = sessions.MessageKey(x.ChatID, messageID)
		if err := x.Tables.Callbacks.Put(x.Log, token, x.entry(messageID, payload)); err != nil {
			return "", err
		}
	}
	return sessions.Encode(sessions.Payload{Command: x.command, Token: token, Args: args})
}

// Context is handed to Command.OnStart.
type Context struct {
	Invocation
	Meta       Meta
	Typed      string
	Args       []string
	PrefixUsed bool
}

// Usages replies with the command's guide lines and description.
func (x *Context) Usages() error {
	if len(x.Meta.Guide) == 0 {
		return nil
	}

	prefix := x.Settings.Prefix
	if x.Meta.Prefix == PrefixForbidden {
		prefix = ""
	}

	var b strings.Builder
	b.WriteString(x.T("MsgUsagesHeader", map[string]any{"Symbols": x.Settings.Symbols}))
	b.WriteString("\n\n")
	for _, line := range x.Meta.Guide {
		fmt.Fprintf(&b, "%s%s %s\n", prefix, x.Meta.Name, line)
	}
	if x.Meta.Description != "" {
		fmt.Fprintf(&b, "\n- %s", x.Meta.Description)
	}

	_, err := x.Response.Reply(b.String(), telegram.Markdown())
	return err
}

type ReplyContext struct {
	Invocation
	Entry   sessions.Entry
	Replied *tgbotapi.Message
	Args    []string
}

// Forget drops the reply session that routed this message.
func (x *ReplyContext) Forget() error {
	return x.Tables.Replies.Delete(x.Log, sessions.MessageKey(x.ChatID, x.Replied.MessageID))
}

type CallbackContext struct {
	Invocation
	Query    *tgbotapi.CallbackQuery
	Payload  sessions.Payload
	Entry    sessions.Entry
	answered bool
}

// Answer acknowledges the button press. The dispatcher answers with no text when a
// handler returns without calling it.
func (x *CallbackContext) Answer(text string, alert bool) error {
	x.answered = true
	return x.Response.AnswerCallback(x.Query.ID, text, alert)
}

// Update rewrites the session payload for later presses.
func (x *CallbackContext) Update(mutate func(*sessions.Entry)) error {
	return x.Tables.Callbacks.Update(x.Log, x.Payload.Key(x.ChatID), mutate)
}

func (x *CallbackContext) Forget() error {
	return x.Tables.Callbacks.Delete(x.Log, x.Payload.Key(x.ChatID))
}

type ChatContext struct {
	Invocation
	Args []string
}

type EventContext struct {
	Invocation
	Type EventType
}
