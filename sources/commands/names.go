package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/platform"
	"chaldea/sources/settings"
	"chaldea/sources/tracing"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func userName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" && user.UserName != "" {
		name = "@" + user.UserName
	}
	return name
}

// lookupName resolves a display name for a user id through getChat; fallback is used
// when the lookup fails or the chat carries no name.
func lookupName(ctx *dispatcher.Invocation, id int64, fallback string) string {
	chat, err := ctx.Bot.GetChat(chatInfo(id))
	if err != nil {
		ctx.Log.W("Failed to look up user", tracing.UserId, id, tracing.InnerError, err)
		return fallback
	}
	if name := strings.TrimSpace(chat.FirstName + " " + chat.LastName); name != "" {
		return name
	}
	if chat.UserName != "" {
		return "@" + chat.UserName
	}
	return fallback
}

// target is the user a management subcommand acts on: the explicit argument, or the
// author of the replied message.
func target(ctx *dispatcher.Context, arg string) (int64, bool) {
	if arg != "" {
		id, err := platform.ParseChatID(arg)
		return int64(id), err == nil
	}
	if replied := ctx.Message.ReplyToMessage; replied != nil && replied.From != nil {
		return replied.From.ID, true
	}
	return 0, false
}

func chatInfo(id int64) tgbotapi.ChatInfoConfig {
	return tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: id}}
}

func capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

func formatID(id int64) string {
	return settings.FormatID(id)
}

// normalizeAction maps the short spellings of management subcommands.
func normalizeAction(args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := append([]string(nil), args...)
	switch strings.ToLower(out[0]) {
	case "add", "-a", "a":
		out[0] = "add"
	case "remove", "-r", "r", "rm":
		out[0] = "remove"
	case "list", "-l", "l":
		out[0] = "list"
	}
	return out
}
