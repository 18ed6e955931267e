// Package dispatchertest wires a Dispatcher to in-memory collaborators for tests.
package dispatchertest

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/features"
	"chaldea/sources/localization"
	"chaldea/sources/metrics"
	"chaldea/sources/sessions"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/telegram/telegramtest"
	"chaldea/sources/throttler"
	"chaldea/sources/tracing"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

const Username = "ChaldeaBot"

type Options struct {
	// Instances defaults to one.
	Instances int
	Settings  settings.Settings
	VIP       []string
	Features  map[string]bool
}

type Harness struct {
	Bot          *telegramtest.Bot
	Instances    []*telegram.Instance
	Registry     *dispatcher.Registry
	Dispatcher   *dispatcher.Dispatcher
	Store        *settings.Store
	Tables       *sessions.Tables
	Throttler    *throttler.MemoryThrottler
	Journal      *Journal
	SettingsPath string
	VipPath      string

	log         *tracing.Logger
	mu          sync.Mutex
	now         time.Time
	nextUpdate  int
	nextMessage int
}

func New(t testing.TB, opts Options) *Harness {
	t.Helper()

	if opts.Instances == 0 {
		opts.Instances = 1
	}
	if opts.Settings.Prefix == "" {
		opts.Settings.Prefix = "/"
	}
	if opts.VIP == nil {
		opts.VIP = []string{}
	}

	log := tracing.NewDiscardLogger()
	config := telegramtest.Config()
	dir := t.TempDir()

	h := &Harness{
		Bot:          telegramtest.NewBot(),
		SettingsPath: filepath.Join(dir, "settings.json"),
		VipPath:      filepath.Join(dir, "vip.json"),
		log:          log,
		now:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		nextMessage:  1,
	}

	settingsDoc, err := settings.OpenDocument(h.SettingsPath, opts.Settings)
	require.NoError(t, err)
	vipDoc, err := settings.OpenDocument(h.VipPath, settings.VIP{UID: opts.VIP})
	require.NoError(t, err)
	h.Store = settings.NewStore(settingsDoc, vipDoc, log)

	localizer, err := localization.NewLocalizationManager(config, localization.NewLanguageDetector(config, log), log)
	require.NoError(t, err)

	h.Instances = telegramtest.Instances(h.Bot, opts.Instances, Username)
	h.Throttler = throttler.NewMemoryThrottlerWithClock(h.Now)
	h.Tables = &sessions.Tables{
		Replies:   sessions.NewMemoryTableWithClock(sessions.RepliesTable, time.Hour, h.Now),
		Callbacks: sessions.NewMemoryTableWithClock(sessions.CallbacksTable, time.Hour, h.Now),
	}
	h.Registry = dispatcher.NewRegistry()
	h.Journal = &Journal{}

	diplomat := telegramtest.Diplomat(config)
	h.Dispatcher = dispatcher.NewDispatcher(
		h.Registry,
		h.Store,
		h.Throttler,
		h.Tables,
		telegram.NewMembers(log),
		diplomat,
		telegram.NewTypingManager(diplomat, log),
		localizer,
		features.NewStaticFeatureManager(log, opts.Features),
		h.Journal,
		metrics.NewMetricsService(log),
		config,
	)

	return h
}

func (h *Harness) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *Harness) Advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *Harness) Register(t testing.TB, commands ...dispatcher.Command) {
	t.Helper()
	for _, cmd := range commands {
		require.NoError(t, h.Registry.Register(cmd))
	}
}

func (h *Harness) RegisterEvents(t testing.TB, events ...dispatcher.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, h.Registry.RegisterEvent(ev))
	}
}

func Group(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "supergroup", Title: "Test Group"}
}

func Private(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

func User(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: "User", UserName: "user" + settings.FormatID(id)}
}

func (h *Harness) ids() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextUpdate++
	h.nextMessage++
	return h.nextUpdate, h.nextMessage
}

// Message builds an incoming text message update.
func (h *Harness) Message(chat *tgbotapi.Chat, from *tgbotapi.User, text string) tgbotapi.Update {
	update, message := h.ids()
	return tgbotapi.Update{
		UpdateID: update,
		Message:  &tgbotapi.Message{MessageID: message, Chat: chat, From: from, Text: text, Date: int(h.Now().Unix())},
	}
}

// ReplyTo builds a message replying to replied.
func (h *Harness) ReplyTo(replied tgbotapi.Message, from *tgbotapi.User, text string) tgbotapi.Update {
	update := h.Message(replied.Chat, from, text)
	update.Message.ReplyToMessage = &replied
	return update
}

// Callback builds a button press on message.
func (h *Harness) Callback(message tgbotapi.Message, from *tgbotapi.User, data string) tgbotapi.Update {
	update, _ := h.ids()
	return tgbotapi.Update{
		UpdateID: update,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb" + settings.FormatID(int64(update)),
			From:    from,
			Message: &message,
			Data:    data,
		},
	}
}

// Deliver hands the update to every instance, the way every poller would see it.
func (h *Harness) Deliver(update tgbotapi.Update) {
	for _, instance := range h.Instances {
		h.Dispatcher.Handle(h.log, instance, update)
	}
}

func (h *Harness) DeliverTo(index int, update tgbotapi.Update) {
	h.Dispatcher.Handle(h.log, h.Instances[index], update)
}

// Answers returns every answered callback query in order.
func (h *Harness) Answers() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, c := range h.Bot.Requests() {
		if answer, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, answer)
		}
	}
	return out
}

// LastSent returns the most recent outbound message as the recipient would see it.
func (h *Harness) LastSent(t testing.TB) tgbotapi.Message {
	t.Helper()
	msg, ok := h.Bot.Last()
	require.True(t, ok, "nothing was sent")
	msg.From = &tgbotapi.User{ID: h.Instances[0].Self.ID, IsBot: true, UserName: Username}
	return msg
}
