package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/dispatcher/dispatchertest"
	"chaldea/sources/settings"
	"chaldea/sources/tracing"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupID int64 = -1001234

type stub struct {
	meta dispatcher.Meta
}

func (s stub) Meta() dispatcher.Meta {
	return s.meta
}

func (s stub) OnStart(*dispatcher.Context) error {
	return nil
}

func newHarness(t *testing.T, admins ...string) *dispatchertest.Harness {
	t.Helper()
	return dispatchertest.New(t, dispatchertest.Options{
		Settings: settings.Settings{Admin: admins, Prefix: "/", Symbols: "✨"},
	})
}

func TestAdminAddIsLimitedToAdmins(t *testing.T) {
	h := newHarness(t, "111")
	h.Register(t, NewAdmin())
	chat := dispatchertest.Group(groupID)

	h.Deliver(h.Message(chat, dispatchertest.User(111), "/admin add 222"))
	assert.Equal(t, []string{"111", "222"}, h.Store.Settings().Admin)
	assert.Equal(t, []string{"User has been successfully added as an admin."}, h.Bot.Texts())

	h.Bot.Reset()
	h.Deliver(h.Message(chat, dispatchertest.User(333), "/admin add 444"))
	assert.Equal(t, []string{"111", "222"}, h.Store.Settings().Admin)
	assert.Equal(t, []string{"You don't have permission to use this command. Only admins can use this method."}, h.Bot.Texts())
}

func TestAdminSubcommands(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		admins []string
		reply  string
	}{
		{"short add", "admin -a 222", []string{"111", "222"}, "successfully added"},
		{"already listed", "/ad add 111", []string{"111"}, "already an admin"},
		{"invalid id", "/admin add abc", []string{"111"}, "The ID provided is invalid"},
		{"remove", "/admin r 111", []string{}, "successfully removed"},
		{"remove missing", "/admin remove 222", []string{"111"}, "not an admin"},
		{"no action shows usages", "/admin", []string{"111"}, "Usages:"},
		{"unknown action shows usages", "/admin promote 222", []string{"111"}, "Usages:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "111")
			h.Register(t, NewAdmin())

			h.Deliver(h.Message(dispatchertest.Private(111), dispatchertest.User(111), tt.text))

			assert.Equal(t, tt.admins, h.Store.Settings().Admin)
			texts := h.Bot.Texts()
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.reply)
		})
	}
}

func TestAdminTargetsRepliedUser(t *testing.T) {
	h := newHarness(t, "111")
	h.Register(t, NewAdmin())
	chat := dispatchertest.Group(groupID)

	update := h.Message(chat, dispatchertest.User(111), "/admin add")
	update.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 1, Chat: chat, From: dispatchertest.User(777)}
	h.Deliver(update)

	assert.Equal(t, []string{"111", "777"}, h.Store.Settings().Admin)
}

func TestAdminList(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewAdmin())

	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "/admin list"))
	assert.Equal(t, []string{"There are currently no admins."}, h.Bot.Texts())

	require.NoError(t, h.Store.AddAdmin(tracing.NewDiscardLogger(), 111))
	h.Bot.Reset()
	h.Advance(time.Second)
	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "/admin list"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "List of System Admins:")
	assert.Contains(t, texts[0], "https://t.me/111")
}

func TestVipManagement(t *testing.T) {
	h := newHarness(t, "111")
	h.Register(t, NewVIP())
	chat := dispatchertest.Private(111)

	h.Deliver(h.Message(chat, dispatchertest.User(111), "vip add 555"))
	assert.True(t, h.Store.IsVIP(555))
	require.Len(t, h.Bot.Texts(), 1)
	assert.Equal(t, "✅ Added VIP: User (555).", h.Bot.Texts()[0])

	h.Bot.Reset()
	h.Advance(2 * time.Second)
	h.Deliver(h.Message(chat, dispatchertest.User(111), "/vip list"))
	require.Len(t, h.Bot.Texts(), 1)
	assert.Contains(t, h.Bot.Texts()[0], "`555`")

	h.Bot.Reset()
	h.Deliver(h.Message(dispatchertest.Private(9), dispatchertest.User(9), "/vip remove 555"))
	assert.True(t, h.Store.IsVIP(555))
	assert.Equal(t, []string{"⚠️ Only bot admins can use this command."}, h.Bot.Texts())

	h.Bot.Reset()
	h.Advance(2 * time.Second)
	h.Deliver(h.Message(chat, dispatchertest.User(111), "/vip rm 555"))
	assert.False(t, h.Store.IsVIP(555))
	assert.Equal(t, []string{"✅ Removed VIP: User (555)."}, h.Bot.Texts())
}

func TestVipRequiresTarget(t *testing.T) {
	h := newHarness(t, "111")
	h.Register(t, NewVIP())

	h.Deliver(h.Message(dispatchertest.Private(111), dispatchertest.User(111), "/vip add"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Missing target user")
}

func TestUidShowsRepliedUser(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewUID())
	chat := dispatchertest.Group(groupID)

	h.Deliver(h.Message(chat, dispatchertest.User(5), "id"))
	require.Len(t, h.Bot.Texts(), 1)
	assert.Contains(t, h.Bot.Texts()[0], "`5`")

	h.Bot.Reset()
	h.Advance(3 * time.Second)
	update := h.Message(chat, dispatchertest.User(5), "/uid")
	update.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 1, Chat: chat, From: &tgbotapi.User{ID: 42, FirstName: "Mash"}}
	h.Deliver(update)

	assert.Equal(t, []string{"🆔 *Mash*'s Telegram ID: `42`"}, h.Bot.Texts())
}

func TestPrefixWorksWithoutPrefix(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewPrefix())

	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "prefix"))
	assert.Equal(t, []string{"✨ My prefix is: `/`"}, h.Bot.Texts())
}

func registerMany(t *testing.T, h *dispatchertest.Harness, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.Register(t, stub{meta: dispatcher.Meta{Name: fmt.Sprintf("cmd%02d", i), Description: "generated", Category: "fun"}})
	}
}

func markupOf(t *testing.T, h *dispatchertest.Harness) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	var markup *tgbotapi.InlineKeyboardMarkup
	for _, c := range h.Bot.Requests() {
		switch v := c.(type) {
		case tgbotapi.EditMessageReplyMarkupConfig:
			markup = v.ReplyMarkup
		case tgbotapi.EditMessageTextConfig:
			markup = v.ReplyMarkup
		}
	}
	require.NotNil(t, markup)
	return *markup
}

func TestHelpPaginatesWithButtons(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewHelp())
	registerMany(t, h, 12)
	user := dispatchertest.User(5)

	h.Deliver(h.Message(dispatchertest.Group(groupID), user, "/help"))
	sent := h.LastSent(t)
	assert.Contains(t, sent.Text, "*Page:* 1/2")
	assert.Contains(t, sent.Text, "*Total Commands:* 13")
	assert.Contains(t, sent.Text, "1. `/cmd00` - generated")
	assert.NotContains(t, sent.Text, "cmd10")

	buttons := markupOf(t, h).InlineKeyboard[0]
	require.Len(t, buttons, 1)
	assert.Equal(t, "▶️", buttons[0].Text)
	next := *buttons[0].CallbackData

	h.Deliver(h.Callback(sent, dispatchertest.User(6), next))
	answers := h.Answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "This button is not for you.", answers[0].Text)

	h.Deliver(h.Callback(sent, user, next))
	var edited tgbotapi.EditMessageTextConfig
	for _, c := range h.Bot.Requests() {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edited = e
		}
	}
	assert.Contains(t, edited.Text, "*Page:* 2/2")
	assert.Contains(t, edited.Text, "11. `/cmd10`")
	assert.Equal(t, sent.MessageID, edited.MessageID)

	buttons = markupOf(t, h).InlineKeyboard[0]
	require.Len(t, buttons, 1)
	assert.Equal(t, "◀️", buttons[0].Text)
	assert.Len(t, h.Answers(), 2)
}

func TestHelpSinglePageHasNoButtons(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewHelp(), NewUID())

	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "help"))

	messages := h.Bot.Messages()
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].ReplyMarkup)
	assert.Contains(t, messages[0].Text, "*Page:* 1/1")
}

func TestHelpHidesWhatTheSenderCannotRun(t *testing.T) {
	h := newHarness(t, "111")
	h.Register(t, NewHelp(),
		stub{meta: dispatcher.Meta{Name: "shutdown", Type: dispatcher.TierOwner}},
		stub{meta: dispatcher.Meta{Name: "secret", Category: "hidden"}},
		stub{meta: dispatcher.Meta{Name: "lounge", Type: dispatcher.TierVIP}},
		stub{meta: dispatcher.Meta{Name: "dm", Type: dispatcher.TierPrivate}},
	)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(5), "/help"))
	text := h.Bot.Texts()[0]
	assert.NotContains(t, text, "shutdown")
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "lounge")
	assert.NotContains(t, text, "`/dm`")

	h.Bot.Reset()
	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(111), "/help"))
	text = h.Bot.Texts()[0]
	assert.Contains(t, text, "shutdown")
	assert.Contains(t, text, "lounge")
	assert.NotContains(t, text, "secret")
}

func TestHelpDescribesOneCommand(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewHelp(), NewUID())

	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "/help id"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "📘 *Command:* `uid`")
	assert.Contains(t, texts[0], "*Category:*\nUtility")
	assert.Contains(t, texts[0], "*Cooldown:*\n3 seconds")
	assert.Contains(t, texts[0], "`id`, `userid`")
}

func TestHelpAllGroupsByCategory(t *testing.T) {
	h := newHarness(t)
	h.Register(t, NewHelp(), NewUID(), NewPrefix())

	h.Deliver(h.Message(dispatchertest.Private(5), dispatchertest.User(5), "/help -a"))

	text := h.Bot.Texts()[0]
	assert.Less(t, strings.Index(text, "│ System"), strings.Index(text, "│ Utility"))
	assert.Contains(t, text, "│➥ /help\n│➥ /prefix")
	assert.True(t, strings.HasSuffix(text, "Total Commands: 3"))
}

func TestWelcomeGreetsMembers(t *testing.T) {
	h := newHarness(t)
	h.RegisterEvents(t, NewWelcome())

	update := h.Message(dispatchertest.Group(groupID), dispatchertest.User(5), "")
	update.Message.NewChatMembers = []tgbotapi.User{{ID: 5, FirstName: "Mash", LastName: "Kyrielight"}}
	h.Deliver(update)

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.True(t, strings.HasPrefix(texts[0], "Hi Mash Kyrielight, welcome to Test Group!"))
	assert.Contains(t, texts[0], "member number 10")
	assert.Zero(t, h.Bot.Messages()[0].ReplyToMessageID)
}

func TestWelcomeAsksForAdminRights(t *testing.T) {
	h := newHarness(t)
	h.RegisterEvents(t, NewWelcome())
	self := h.Instances[0].Self

	update := h.Message(dispatchertest.Group(groupID), dispatchertest.User(5), "")
	update.Message.NewChatMembers = []tgbotapi.User{self}
	h.Deliver(update)

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Chaldea has been successfully connected!")

	h.Bot.Reset()
	h.Bot.Statuses[self.ID] = "administrator"
	h.Deliver(update)
	assert.Empty(t, h.Bot.Texts())
}

func TestWelcomeFailureNotifiesOwners(t *testing.T) {
	h := newHarness(t, "111")
	h.RegisterEvents(t, NewWelcome())
	h.Bot.MemberErr = fmt.Errorf("forbidden")

	update := h.Message(dispatchertest.Group(groupID), dispatchertest.User(5), "")
	update.Message.NewChatMembers = []tgbotapi.User{h.Instances[0].Self}
	h.Deliver(update)

	messages := h.Bot.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, int64(111), messages[0].ChatID)
	assert.Equal(t, "Error in welcome handler:\nforbidden", messages[0].Text)
}

func TestGoodbye(t *testing.T) {
	tests := []struct {
		name   string
		sender int64
		left   int64
		want   []string
	}{
		{"left", 5, 5, []string{"User has left the group. We'll miss you!"}},
		{"removed", 111, 5, []string{"Goodbye, User. You were removed by an admin."}},
		{"bot removed", 111, 9000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.RegisterEvents(t, NewGoodbye())

			update := h.Message(dispatchertest.Group(groupID), dispatchertest.User(tt.sender), "")
			update.Message.LeftChatMember = &tgbotapi.User{ID: tt.left, FirstName: "User"}
			h.Deliver(update)

			assert.Equal(t, tt.want, h.Bot.Texts())
		})
	}
}
