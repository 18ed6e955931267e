package dispatcher_test

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/dispatcher/dispatchertest"
	"chaldea/sources/sessions"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID int64 = 111
	userID  int64 = 555
	groupID int64 = -100123456789
)

func newHarness(t *testing.T, opts dispatchertest.Options) *dispatchertest.Harness {
	t.Helper()
	if opts.Settings.Owner == nil {
		opts.Settings.Owner = []string{settings.FormatID(ownerID)}
	}
	if opts.Settings.Symbols == "" {
		opts.Settings.Symbols = "✨"
	}
	return dispatchertest.New(t, opts)
}

func TestAliasResolvesToCommand(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	help := newRecorder(dispatcher.Meta{Name: "help", Aliases: []string{"h"}})
	h.Register(t, help)

	h.Deliver(h.Message(dispatchertest.Private(userID), dispatchertest.User(userID), "/H 2"))

	starts := help.Starts()
	require.Len(t, starts, 1)
	assert.Equal(t, "H", starts[0].Typed)
	assert.Equal(t, []string{"2"}, starts[0].Args)
	assert.Equal(t, dispatcher.RoleAnyone, starts[0].Role)
	assert.Equal(t, userID, starts[0].UserID)
	assert.Equal(t, userID, starts[0].ChatID)
}

func TestMentionOfAnotherBotIsDropped(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	uid := newRecorder(dispatcher.Meta{Name: "uid"})
	h.Register(t, uid)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/uid@OtherBot"))
	assert.Empty(t, uid.Starts())
	assert.Empty(t, h.Bot.Sent())

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/@OtherBot"))
	assert.Empty(t, h.Bot.Sent())

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/@ChaldeaBot"))
	require.Len(t, h.Bot.Texts(), 1)
	assert.Contains(t, h.Bot.Texts()[0], "Please enter a command after the prefix.")

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/uid@chaldeabot"))
	assert.Len(t, uid.Starts(), 1)
}

func TestPrefixPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  dispatcher.PrefixPolicy
		text    string
		invoked bool
		reply   string
	}{
		{"required with prefix", dispatcher.PrefixRequired, "/ping", true, ""},
		{"required without prefix", dispatcher.PrefixRequired, "ping", false, "requires a prefix"},
		{"forbidden with prefix", dispatcher.PrefixForbidden, "/ping", false, "does not require a prefix"},
		{"forbidden without prefix", dispatcher.PrefixForbidden, "ping", true, ""},
		{"either with prefix", dispatcher.PrefixEither, "/ping", true, ""},
		{"either without prefix", dispatcher.PrefixEither, "ping", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, dispatchertest.Options{})
			ping := newRecorder(dispatcher.Meta{Name: "ping", Prefix: tt.policy})
			h.Register(t, ping)

			h.Deliver(h.Message(dispatchertest.Private(userID), dispatchertest.User(userID), tt.text))

			if tt.invoked {
				assert.Len(t, ping.Starts(), 1)
				assert.Empty(t, h.Bot.Texts())
				return
			}
			assert.Empty(t, ping.Starts())
			texts := h.Bot.Texts()
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.reply)
		})
	}
}

func TestUnresolvedInput(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		reply string
	}{
		{"prefix only", "/", "Please enter a command after the prefix."},
		{"unknown with prefix", "/nope", `The command "nope" is not found`},
		{"unknown without prefix", "hello there", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, dispatchertest.Options{})
			h.Register(t, newRecorder(dispatcher.Meta{Name: "ping"}))

			h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), tt.text))

			texts := h.Bot.Texts()
			if tt.reply == "" {
				assert.Empty(t, texts)
				return
			}
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.reply)
		})
	}
}

func TestDisabledCommandBehavesAsUnknown(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{Features: map[string]bool{"commands/ping": false}})
	ping := newRecorder(dispatcher.Meta{Name: "ping"})
	h.Register(t, ping)

	h.Deliver(h.Message(dispatchertest.Private(userID), dispatchertest.User(userID), "/ping"))

	assert.Empty(t, ping.Starts())
	require.Len(t, h.Bot.Texts(), 1)
	assert.Contains(t, h.Bot.Texts()[0], "not found")
}

func TestCooldownBlocksUntilWindowElapses(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	daily := newRecorder(dispatcher.Meta{Name: "daily", Aliases: []string{"d"}, Cooldown: 5})
	h.Register(t, daily)

	chat, user := dispatchertest.Group(groupID), dispatchertest.User(userID)

	h.Deliver(h.Message(chat, user, "/daily"))
	require.Len(t, daily.Starts(), 1)

	h.Advance(2 * time.Second)
	h.Deliver(h.Message(chat, user, "/D"))
	assert.Len(t, daily.Starts(), 1)
	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], `wait 3 seconds before using "D"`)

	h.Advance(3 * time.Second)
	h.Deliver(h.Message(chat, user, "/daily"))
	assert.Len(t, daily.Starts(), 2)
}

func TestCooldownRoundsUp(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	h.Register(t, newRecorder(dispatcher.Meta{Name: "daily", Cooldown: 5}))

	chat, user := dispatchertest.Private(userID), dispatchertest.User(userID)
	h.Deliver(h.Message(chat, user, "/daily"))
	h.Advance(4*time.Second + 100*time.Millisecond)
	h.Deliver(h.Message(chat, user, "/daily"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "wait 1 seconds")
}

func TestRejectedCommandsAreJournaled(t *testing.T) {
	tests := []struct {
		name   string
		meta   dispatcher.Meta
		texts  []string
		rows   int
		reject int
	}{
		{"prefix required", dispatcher.Meta{Name: "ping", Prefix: dispatcher.PrefixRequired}, []string{"ping"}, 1, 0},
		{"prefix forbidden", dispatcher.Meta{Name: "ping", Prefix: dispatcher.PrefixForbidden}, []string{"/ping"}, 1, 0},
		{"cooldown", dispatcher.Meta{Name: "daily", Cooldown: 5}, []string{"/daily", "/daily"}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, dispatchertest.Options{})
			h.Register(t, newRecorder(tt.meta))

			for _, text := range tt.texts {
				h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), text))
			}

			rows := h.Journal.Rows()
			require.Len(t, rows, tt.rows)
			row := rows[tt.reject]
			assert.Equal(t, "command", row.Kind)
			assert.Equal(t, tt.meta.Name, row.Command)
			assert.Equal(t, "rejected", row.Outcome)
			assert.Equal(t, int64(userID), row.UserID)
			assert.Equal(t, int64(groupID), row.ChatID)
			assert.Nil(t, row.Error)
		})
	}
}

func TestOwnersBypassCooldown(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	daily := newRecorder(dispatcher.Meta{Name: "daily", Cooldown: 5})
	h.Register(t, daily)

	chat, owner := dispatchertest.Group(groupID), dispatchertest.User(ownerID)
	h.Deliver(h.Message(chat, owner, "/daily"))
	h.Deliver(h.Message(chat, owner, "/daily"))

	starts := daily.Starts()
	require.Len(t, starts, 2)
	assert.Equal(t, dispatcher.RoleOwner, starts[0].Role)
	assert.Empty(t, h.Bot.Texts())
}

func TestZeroCooldownDefaultsToOneSecond(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	ping := newRecorder(dispatcher.Meta{Name: "ping"})
	h.Register(t, ping)

	chat, user := dispatchertest.Private(userID), dispatchertest.User(userID)
	h.Deliver(h.Message(chat, user, "/ping"))
	h.Deliver(h.Message(chat, user, "/ping"))
	assert.Len(t, ping.Starts(), 1)

	h.Advance(time.Second)
	h.Deliver(h.Message(chat, user, "/ping"))
	assert.Len(t, ping.Starts(), 2)
}

func TestGroupChatIsHandledByExactlyOneInstance(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{Instances: 3})
	ping := newRecorder(dispatcher.Meta{Name: "ping"})
	h.Register(t, ping)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/ping"))

	starts := ping.Starts()
	require.Len(t, starts, 1)
	assert.Equal(t, 1, starts[0].Instance.Index)
}

func TestPrivateChatIsHandledByEveryInstance(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{Instances: 3})
	ping := newRecorder(dispatcher.Meta{Name: "ping", Cooldown: 0})
	h.Register(t, ping)

	for i := range h.Instances {
		h.Advance(time.Second)
		h.DeliverTo(i, h.Message(dispatchertest.Private(userID), dispatchertest.User(userID), "/ping"))
	}
	assert.Len(t, ping.Starts(), 3)
}

func TestPermissionGate(t *testing.T) {
	const vipID int64 = 777

	tests := []struct {
		name    string
		tier    dispatcher.Tier
		chat    *tgbotapi.Chat
		sender  int64
		status  string
		invoked bool
		reply   string
	}{
		{"anyone", dispatcher.TierAnyone, dispatchertest.Group(groupID), userID, "", true, ""},
		{"owner tier rejects users", dispatcher.TierOwner, dispatchertest.Group(groupID), userID, "", false, "Only bot owners"},
		{"legacy admin tier rejects users", dispatcher.TierAdmin, dispatchertest.Group(groupID), userID, "", false, "Only bot owners"},
		{"owner tier admits owners", dispatcher.TierOwner, dispatchertest.Group(groupID), ownerID, "", true, ""},
		{"vip rejects users", dispatcher.TierVIP, dispatchertest.Group(groupID), userID, "", false, "VIP access"},
		{"vip admits vip", dispatcher.TierVIP, dispatchertest.Group(groupID), vipID, "", true, ""},
		{"group rejects private", dispatcher.TierGroup, dispatchertest.Private(userID), userID, "", false, "only be used in a group"},
		{"group admits group", dispatcher.TierGroup, dispatchertest.Group(groupID), userID, "", true, ""},
		{"group admits owner in private", dispatcher.TierGroup, dispatchertest.Private(ownerID), ownerID, "", true, ""},
		{"private rejects group", dispatcher.TierPrivate, dispatchertest.Group(groupID), userID, "", false, "only be used in private"},
		{"administrator rejects private", dispatcher.TierAdministrator, dispatchertest.Private(userID), userID, "", false, "by an administrator"},
		{"administrator rejects members", dispatcher.TierAdministrator, dispatchertest.Group(groupID), userID, "member", false, "must be a group administrator"},
		{"administrator admits admins", dispatcher.TierAdministrator, dispatchertest.Group(groupID), userID, "administrator", true, ""},
		{"administrator admits creators", dispatcher.TierAdministrator, dispatchertest.Group(groupID), userID, "creator", true, ""},
		{"hidden is not gated", dispatcher.TierHidden, dispatchertest.Group(groupID), userID, "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, dispatchertest.Options{VIP: []string{settings.FormatID(vipID)}})
			cmd := newRecorder(dispatcher.Meta{Name: "guarded", Type: tt.tier})
			h.Register(t, cmd)
			if tt.status != "" {
				h.Bot.Statuses[tt.sender] = tt.status
			}

			h.Deliver(h.Message(tt.chat, dispatchertest.User(tt.sender), "/guarded"))

			if tt.invoked {
				assert.Len(t, cmd.Starts(), 1)
				assert.Empty(t, h.Bot.Texts())
				return
			}
			assert.Empty(t, cmd.Starts())
			texts := h.Bot.Texts()
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.reply)
		})
	}
}

func TestAdministratorLookupFailureIsReported(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	cmd := newRecorder(dispatcher.Meta{Name: "kick", Type: dispatcher.TierAdministrator})
	h.Register(t, cmd)
	h.Bot.MemberErr = errors.New("bad gateway")

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/kick"))

	assert.Empty(t, cmd.Starts())
	require.Len(t, h.Bot.Texts(), 1)
	assert.Contains(t, h.Bot.Texts()[0], "Unable to verify")
}

func TestPluginFailureRepliesOnceAndProcessingContinues(t *testing.T) {
	tests := []struct {
		name    string
		onStart func(*dispatcher.Context) error
		want    string
	}{
		{"error", func(*dispatcher.Context) error { return errors.New("boom") }, `Error executing command "crash": boom`},
		{"panic", func(*dispatcher.Context) error { panic("kaboom") }, `Error executing command "crash": kaboom`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, dispatchertest.Options{})
			crash := newRecorder(dispatcher.Meta{Name: "crash"})
			crash.onStart = tt.onStart
			ping := newRecorder(dispatcher.Meta{Name: "ping"})
			h.Register(t, crash, ping)

			chat, user := dispatchertest.Group(groupID), dispatchertest.User(userID)
			h.Deliver(h.Message(chat, user, "/crash"))

			texts := h.Bot.Texts()
			require.Len(t, texts, 1)
			assert.Equal(t, tt.want, texts[0])

			h.Deliver(h.Message(chat, user, "/ping"))
			assert.Len(t, ping.Starts(), 1)
			assert.Len(t, h.Bot.Texts(), 1)
		})
	}
}

func TestUsagesRendersGuide(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	vip := newRecorder(dispatcher.Meta{
		Name:        "vip",
		Description: "Manage VIP users",
		Guide:       []string{"list", "add <uid>"},
	})
	vip.onStart = func(ctx *dispatcher.Context) error { return ctx.Usages() }
	h.Register(t, vip)

	h.Deliver(h.Message(dispatchertest.Private(userID), dispatchertest.User(userID), "/vip"))

	messages := h.Bot.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "✨ Usages:\n\n/vip list\n/vip add <uid>\n\n- Manage VIP users", messages[0].Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, messages[0].ParseMode)
}

func TestReplyIsRoutedToTheCommandThatAskedForIt(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	ask := newRecorder(dispatcher.Meta{Name: "ask"})
	ask.onStart = func(ctx *dispatcher.Context) error {
		sent, err := ctx.Response.Reply("What is your name?")
		if err != nil {
			return err
		}
		return ctx.ExpectReply(sent, map[string]string{"step": "name"})
	}
	h.Register(t, ask)

	chat, user := dispatchertest.Group(groupID), dispatchertest.User(userID)
	h.Deliver(h.Message(chat, user, "/ask"))
	question := h.LastSent(t)

	h.Deliver(h.ReplyTo(question, dispatchertest.User(999), "Mallory"))
	assert.Empty(t, ask.Replies(), "replies from other users are ignored")

	h.Deliver(h.ReplyTo(question, user, "Ritsuka Fujimaru"))
	replies := ask.Replies()
	require.Len(t, replies, 1)
	assert.Equal(t, "name", replies[0].Entry.Value("step"))
	assert.Equal(t, "ask", replies[0].Entry.Command)
	assert.Equal(t, []string{"Ritsuka", "Fujimaru"}, replies[0].Args)

	h.Deliver(h.Message(chat, user, "just chatting"))
	assert.Len(t, ask.Replies(), 1, "messages that are not replies never reach OnReply")
}

func TestReplyFailureIsReported(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	ask := newRecorder(dispatcher.Meta{Name: "ask", Interact: dispatcher.InteractAnyone})
	ask.onStart = func(ctx *dispatcher.Context) error {
		sent, err := ctx.Response.Reply("question")
		if err != nil {
			return err
		}
		return ctx.ExpectReply(sent, nil)
	}
	ask.onReply = func(*dispatcher.ReplyContext) error { return errors.New("bad answer") }
	h.Register(t, ask)

	chat := dispatchertest.Group(groupID)
	h.Deliver(h.Message(chat, dispatchertest.User(userID), "/ask"))
	question := h.LastSent(t)

	h.Deliver(h.ReplyTo(question, dispatchertest.User(999), "answer"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "An error occurred while processing your reply: bad answer", texts[1])
}

func TestReplyToCommandWithoutReplyHook(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	h.Register(t, &plain{meta: dispatcher.Meta{Name: "note"}})

	chat := dispatchertest.Group(groupID)
	require.NoError(t, h.Tables.Replies.Put(tracing.NewDiscardLogger(), sessions.MessageKey(groupID, 4242), sessions.Entry{Command: "note"}))

	h.Deliver(h.ReplyTo(tgbotapi.Message{MessageID: 4242, Chat: chat}, dispatchertest.User(userID), "hi"))

	texts := h.Bot.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Command note doesn't support replies", texts[0])
}

func pressable(t *testing.T, h *dispatchertest.Harness, interact dispatcher.Interaction) (*recorder, tgbotapi.Message, string) {
	t.Helper()

	var data string
	menu := newRecorder(dispatcher.Meta{Name: "menu", Interact: interact})
	menu.onStart = func(ctx *dispatcher.Context) error {
		var err error
		data, err = ctx.CallbackData(map[string]string{"page": "1"}, "next")
		if err != nil {
			return err
		}
		keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️", data)))
		_, err = ctx.Response.Reply("menu", telegram.Keyboard(keyboard))
		return err
	}
	h.Register(t, menu)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/menu"))
	require.NotEmpty(t, data)
	return menu, h.LastSent(t), data
}

func TestCallbackIsRoutedWithItsSession(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractRequester)

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), data))

	presses := menu.Presses()
	require.Len(t, presses, 1)
	assert.Equal(t, "1", presses[0].Entry.Value("page"))
	assert.Equal(t, []string{"next"}, presses[0].Payload.Args)

	answers := h.Answers()
	require.Len(t, answers, 1, "unanswered presses are acknowledged")
	assert.Empty(t, answers[0].Text)
}

func TestCallbackFromAnotherUserIsRefused(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractRequester)

	h.Deliver(h.Callback(sent, dispatchertest.User(999), data))

	assert.Empty(t, menu.Presses())
	answers := h.Answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "This button is not for you.", answers[0].Text)
	assert.True(t, answers[0].ShowAlert)
}

func TestCallbackOpenToAnyone(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractAnyone)

	h.Deliver(h.Callback(sent, dispatchertest.User(999), data))
	assert.Len(t, menu.Presses(), 1)
}

func TestExpiredCallbackAnswersSessionExpired(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractRequester)

	h.Advance(2 * time.Hour)
	h.Deliver(h.Callback(sent, dispatchertest.User(userID), data))

	assert.Empty(t, menu.Presses())
	answers := h.Answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "This session has expired, please run the command again.", answers[0].Text)

	count, err := h.Tables.Callbacks.Count(tracing.NewDiscardLogger())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCallbackWithUnknownTokenNeverReachesPlugin(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, _ := pressable(t, h, dispatcher.InteractAnyone)

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), "menu|deadbeefdeadbeef|next"))
	h.Deliver(h.Callback(sent, dispatchertest.User(userID), `{"command":"menu","instanceId":"gone","page":2}`))

	assert.Empty(t, menu.Presses())
	answers := h.Answers()
	require.Len(t, answers, 2)
	for _, answer := range answers {
		assert.Contains(t, answer.Text, "expired")
	}
}

func TestCallbackSessionIsOnlyConsultedByItsCommand(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractAnyone)
	other := newRecorder(dispatcher.Meta{Name: "other"})
	h.Register(t, other)

	token := strings.Split(data, "|")[1]
	h.Deliver(h.Callback(sent, dispatchertest.User(userID), "other|"+token))

	assert.Empty(t, other.Presses())
	assert.Empty(t, menu.Presses())

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), data))
	assert.Len(t, menu.Presses(), 1, "a foreign press leaves the session intact")
}

func TestCallbackFailureIsAnsweredWithError(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	menu, sent, data := pressable(t, h, dispatcher.InteractAnyone)
	menu.onCallback = func(*dispatcher.CallbackContext) error { panic("broken button") }

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), data))

	answers := h.Answers()
	require.Len(t, answers, 1)
	assert.Contains(t, answers[0].Text, "broken button")

	h.Advance(time.Second)
	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/menu"))
	assert.Len(t, menu.Starts(), 2)
}

func TestMessageKeyedCallbackSession(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	pager := newRecorder(dispatcher.Meta{Name: "pager"})
	pager.onStart = func(ctx *dispatcher.Context) error {
		_, err := ctx.Response.ReplyInteractive("page 1", func(messageID int) (tgbotapi.InlineKeyboardMarkup, error) {
			data, err := ctx.MessageCallbackData(messageID, nil, "2")
			if err != nil {
				return tgbotapi.InlineKeyboardMarkup{}, err
			}
			return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️", data))), nil
		})
		return err
	}
	h.Register(t, pager)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "/pager"))
	sent := h.LastSent(t)

	var edit tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range h.Bot.Requests() {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			edit = e
		}
	}
	require.NotNil(t, edit.ReplyMarkup)
	data := *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData
	assert.Equal(t, "pager|"+sessions.MessageKey(groupID, sent.MessageID)+"|2", data)

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), data))
	presses := pager.Presses()
	require.Len(t, presses, 1)
	assert.Equal(t, sent.MessageID, presses[0].Entry.MessageID)

	h.Deliver(h.Callback(sent, dispatchertest.User(userID), fmt.Sprintf(`{"command":"pager","messageId":%d,"args":["3"]}`, sent.MessageID)))
	presses = pager.Presses()
	require.Len(t, presses, 2)
	assert.Equal(t, sent.MessageID, presses[1].Entry.MessageID)
	assert.Equal(t, []string{"3"}, presses[1].Payload.Args)
}

func TestChatHooksStopWhenOneDeclines(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	first := &listener{meta: dispatcher.Meta{Name: "antispam"}, proceed: false}
	second := &listener{meta: dispatcher.Meta{Name: "logger"}, proceed: true}
	h.Register(t, first, second)

	h.Deliver(h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "hello"))

	assert.Equal(t, 1, first.seen)
	assert.Zero(t, second.seen)
	assert.Equal(t, 1, first.words)
	assert.Equal(t, 1, second.words, "word hooks are independent of chat hooks")
}

func TestMembershipEventsReachEveryDeclaredPlugin(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{})
	failing := &recorder{meta: dispatcher.EventMeta{Name: "audit", Types: []dispatcher.EventType{dispatcher.EventWelcome, dispatcher.EventLeave}}, err: errors.New("db down")}
	welcome := &recorder{meta: dispatcher.EventMeta{Name: "welcome", Types: []dispatcher.EventType{dispatcher.EventWelcome}}}
	leave := &recorder{meta: dispatcher.EventMeta{Name: "leave", Types: []dispatcher.EventType{dispatcher.EventLeave}}}
	h.RegisterEvents(t, failing, welcome, leave)

	chat := dispatchertest.Group(groupID)
	joined := h.Message(chat, dispatchertest.User(userID), "")
	joined.Message.NewChatMembers = []tgbotapi.User{*dispatchertest.User(userID)}
	h.Deliver(joined)

	left := h.Message(chat, dispatchertest.User(userID), "")
	left.Message.LeftChatMember = dispatchertest.User(userID)
	h.Deliver(left)

	assert.Equal(t, []dispatcher.EventType{dispatcher.EventWelcome, dispatcher.EventLeave}, failing.calls)
	assert.Equal(t, []dispatcher.EventType{dispatcher.EventWelcome}, welcome.calls)
	assert.Equal(t, []dispatcher.EventType{dispatcher.EventLeave}, leave.calls)
}

func TestEventsAreShardedLikeMessages(t *testing.T) {
	h := newHarness(t, dispatchertest.Options{Instances: 3})
	welcome := &recorder{meta: dispatcher.EventMeta{Name: "welcome", Types: []dispatcher.EventType{dispatcher.EventWelcome}}}
	h.RegisterEvents(t, welcome)

	joined := h.Message(dispatchertest.Group(groupID), dispatchertest.User(userID), "")
	joined.Message.NewChatMembers = []tgbotapi.User{*dispatchertest.User(userID)}
	h.Deliver(joined)

	assert.Len(t, welcome.calls, 1)
}
