package dispatcher

import (
	"chaldea/sources/configuration"
	"chaldea/sources/features"
	"chaldea/sources/localization"
	"chaldea/sources/metrics"
	"chaldea/sources/persistence/entities"
	"chaldea/sources/repository"
	"chaldea/sources/sessions"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/throttler"
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	kindCommand  = "command"
	kindReply    = "reply"
	kindCallback = "callback"
	kindEvent    = "event"
)

// Journal persists one row per handled invocation. *repository.InvocationsRepository
// is the production implementation.
type Journal interface {
	Enabled() bool
	Record(logger *tracing.Logger, invocation entities.Invocation) error
}

// Dispatcher routes every update an instance receives through the plugin pipelines.
type Dispatcher struct {
	registry     *Registry
	store        *settings.Store
	throttler    throttler.Throttler
	tables       *sessions.Tables
	members      *telegram.Members
	diplomat     *telegram.Diplomat
	typing       *telegram.TypingManager
	localization *localization.LocalizationManager
	features     *features.FeatureManager
	journal      Journal
	metrics      *metrics.MetricsService
	config       *configuration.Config
	now          func() time.Time
}

func NewDispatcher(
	registry *Registry,
	store *settings.Store,
	throttler throttler.Throttler,
	tables *sessions.Tables,
	members *telegram.Members,
	diplomat *telegram.Diplomat,
	typing *telegram.TypingManager,
	localization *localization.LocalizationManager,
	features *features.FeatureManager,
	journal Journal,
	metrics *metrics.MetricsService,
	config *configuration.Config,
) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		store:        store,
		throttler:    throttler,
		tables:       tables,
		members:      members,
		diplomat:     diplomat,
		typing:       typing,
		localization: localization,
		features:     features,
		journal:      journal,
		metrics:      metrics,
		config:       config,
		now:          time.Now,
	}
}

func (x *Dispatcher) Registry() *Registry {
	return x.registry
}

func (x *Dispatcher) Handle(log *tracing.Logger, instance *telegram.Instance, update tgbotapi.Update) {
	start := time.Now()
	defer func() { x.metrics.RecordUpdateProcessingDuration(time.Since(start)) }()

	log = log.With(tracing.UpdateId, update.UpdateID)

	switch {
	case update.Message != nil:
		x.handleMessage(log, instance, update.Message)
	case update.CallbackQuery != nil:
		x.handleCallback(log, instance, update.CallbackQuery)
	default:
		x.metrics.RecordUpdateIgnored("unsupported")
	}
}

func (x *Dispatcher) invocation(log *tracing.Logger, instance *telegram.Instance, chat *tgbotapi.Chat, trigger int, message *tgbotapi.Message, sender *tgbotapi.User) Invocation {
	snapshot := x.store.Settings()

	inv := Invocation{
		Instance:     instance,
		Bot:          instance.Bot,
		Message:      message,
		Sender:       sender,
		ChatID:       chat.ID,
		Settings:     snapshot,
		Store:        x.store,
		Registry:     x.registry,
		Tables:       x.tables,
		Role:         RoleAnyone,
		localization: x.localization,
	}
	if sender != nil {
		inv.UserID = sender.ID
		if snapshot.IsOwner(sender.ID) {
			inv.Role = RoleOwner
		}
	}

	inv.Log = log.With(tracing.ChatId, chat.ID, tracing.ChatType, chat.Type, tracing.UserId, inv.UserID)
	inv.Response = telegram.NewResponse(inv.Log, instance, x.diplomat, chat, trigger, snapshot.OwnerIDs(), x.config.Telegram.DiplomatChunkSize)
	return inv
}

func (x *Dispatcher) handleMessage(log *tracing.Logger, instance *telegram.Instance, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		x.metrics.RecordUpdateIgnored("no_chat")
		return
	}
	if !instance.Owns(msg.Chat) {
		x.metrics.RecordUpdateIgnored("foreign_shard")
		return
	}
	x.metrics.RecordUpdateHandled(instance.Index, "message")

	inv := x.invocation(log, instance, msg.Chat, msg.MessageID, msg, msg.From)
	inv.Log = inv.Log.With(tracing.MessageId, msg.MessageID)

	x.runChat(inv)
	x.runWords(inv)
	x.runCommand(inv)
	x.runReply(inv)
	x.runEvents(inv)
}

// guard runs a plugin hook and turns a panic into an error.
func (x *Dispatcher) guard(log *tracing.Logger, plugin, hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.E("Plugin panicked", tracing.InnerError, r, "plugin", plugin, "hook", hook, "stack", string(debug.Stack()))
			err = fmt.Errorf("%v", r)
		}
		if err != nil {
			x.metrics.RecordPluginFailure(plugin, hook)
		}
	}()
	return tracing.ReportExecutionForE(log, fn, func(l *tracing.Logger, err error) {
		if err == nil {
			l.D("Plugin hook completed", "plugin", plugin, "hook", hook)
		}
	})
}

func (x *Dispatcher) devMode(snapshot settings.Settings) bool {
	return snapshot.DevMode || x.features.IsEnabledDefault(features.FeatureDevMode, false)
}

func (x *Dispatcher) trace(inv Invocation, what, name string, args []string, elapsed time.Duration) {
	if !x.devMode(inv.Settings) {
		return
	}
	inv.Log.I("Dev mode",
		what, name,
		"time", x.now().In(inv.Settings.Location()).Format("15:04:05 2006-01-02"),
		tracing.UserName, senderName(inv.Sender),
		tracing.CommandArgs, strings.Join(args, " "),
		tracing.ExecutionTime, elapsed.String(),
	)
}

func (x *Dispatcher) record(inv Invocation, kind, name string, args []string, outcome string, failure error, elapsed time.Duration) {
	if !x.journal.Enabled() || !x.features.IsEnabledDefault(features.FeatureJournal, true) {
		return
	}

	row := entities.Invocation{
		Instance:  inv.Instance.Index,
		Kind:      kind,
		Command:   name,
		UserID:    inv.UserID,
		ChatID:    inv.ChatID,
		Args:      strings.Join(args, " "),
		Outcome:   outcome,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if failure != nil {
		text := failure.Error()
		row.Error = &text
	}
	_ = x.journal.Record(inv.Log, row)
}

func (x *Dispatcher) runChat(inv Invocation) {
	ctx := &ChatContext{Invocation: inv, Args: strings.Fields(messageText(inv.Message))}

	for _, cmd := range x.registry.Commands() {
		hook, ok := cmd.(ChatHandler)
		if !ok {
			continue
		}

		name := cmd.Meta().Name
		ctx.command = name
		proceed := true
		err := x.guard(inv.Log, name, "chat", func() error {
			var err error
			proceed, err = hook.OnChat(ctx)
			return err
		})
		if err != nil {
			inv.Log.E("Chat hook failed", tracing.CommandIssued, name, tracing.InnerError, err)
			continue
		}
		if !proceed {
			return
		}
	}
}

func (x *Dispatcher) runWords(inv Invocation) {
	ctx := &ChatContext{Invocation: inv, Args: strings.Fields(messageText(inv.Message))}

	for _, cmd := range x.registry.Commands() {
		hook, ok := cmd.(WordHandler)
		if !ok {
			continue
		}

		name := cmd.Meta().Name
		ctx.command = name
		if err := x.guard(inv.Log, name, "word", func() error { return hook.OnWord(ctx) }); err != nil {
			inv.Log.E("Word hook failed", tracing.CommandIssued, name, tracing.InnerError, err)
		}
	}
}

func (x *Dispatcher) runCommand(inv Invocation) {
	text := inv.Message.Text
	if text == "" {
		return
	}

	prefix := inv.Settings.Prefix
	parsed, ok := ParseCommandText(prefix, text)
	if !parsed.MentionMatches(inv.Instance.Username()) {
		x.metrics.RecordUpdateIgnored("foreign_mention")
		return
	}
	if !ok {
		if parsed.PrefixUsed {
			x.reject(inv, "empty_command", "MsgEnterCommand", nil)
		}
		return
	}

	cmd, found := x.registry.Resolve(parsed.Name)
	if found && !x.features.CommandEnabled(cmd.Meta().Name) {
		found = false
	}
	if !found {
		if parsed.PrefixUsed {
			x.reject(inv, "not_found", "MsgCommandNotFound", map[string]any{"Name": parsed.Typed})
		}
		return
	}

	meta := cmd.Meta()
	inv.command = meta.Name
	inv.Log = inv.Log.With(tracing.CommandIssued, meta.Name, tracing.CommandTier, string(inv.Role))

	switch {
	case meta.Prefix == PrefixRequired && !parsed.PrefixUsed:
		x.reject(inv, "prefix_required", "MsgPrefixRequired", map[string]any{"Name": meta.Name, "Prefix": prefix})
		x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeRejected, nil, 0)
		return
	case meta.Prefix == PrefixForbidden && parsed.PrefixUsed:
		x.reject(inv, "prefix_forbidden", "MsgPrefixForbidden", map[string]any{"Name": meta.Name})
		x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeRejected, nil, 0)
		return
	}

	ctx := &Context{Invocation: inv, Meta: meta, Typed: parsed.Typed, Args: parsed.Args, PrefixUsed: parsed.PrefixUsed}

	if v, ok := x.admit(ctx); !ok {
		x.reject(inv, v.reason, v.message, map[string]any{"Name": meta.Name})
		x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeRejected, nil, 0)
		return
	}

	if !inv.IsOwner() {
		if remaining, ok := x.throttler.Acquire(inv.Log, meta.Name, inv.UserID, throttler.Window(meta.Cooldown)); !ok {
			inv.Log.D("Command on cooldown", tracing.CooldownLeft, remaining.String())
			x.reject(inv, "cooldown", "MsgCooldown", map[string]any{
				"Seconds": throttler.RemainingSeconds(remaining),
				"Name":    parsed.Typed,
			})
			x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeRejected, nil, 0)
			return
		}
	}

	if meta.Typing {
		stop := x.typing.Start(inv.Instance, inv.ChatID)
		defer stop()
	}

	x.metrics.RecordCommandUsed(meta.Name)
	start := time.Now()
	err := x.guard(inv.Log, meta.Name, "start", func() error { return cmd.OnStart(ctx) })
	elapsed := time.Since(start)

	x.trace(inv, tracing.CommandIssued, meta.Name, parsed.Args, elapsed)

	if err != nil {
		inv.Log.E("Command failed", tracing.InnerError, err, tracing.CommandArgs, parsed.Args)
		x.reply(inv, inv.T("MsgCommandError", map[string]any{"Name": parsed.Typed, "Error": err.Error()}))
		x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeFailed, err, elapsed)
		return
	}
	x.record(inv, kindCommand, meta.Name, parsed.Args, repository.OutcomeOk, nil, elapsed)
}

func (x *Dispatcher) runReply(inv Invocation) {
	replied := inv.Message.ReplyToMessage
	if replied == nil {
		return
	}

	key := sessions.MessageKey(inv.ChatID, replied.MessageID)
	entry, err := x.tables.Replies.Get(inv.Log, key)
	if err != nil {
		if !errors.Is(err, sessions.ErrSessionNotFound) {
			inv.Log.E("Reply session lookup failed", tracing.SessionKey, key, tracing.InnerError, err)
		}
		return
	}

	cmd, ok := x.registry.Lookup(entry.Command)
	if !ok {
		inv.Log.W("Reply session names an unknown command", tracing.CommandIssued, entry.Command)
		x.reply(inv, inv.T("MsgReplyUnknown", map[string]any{"Name": entry.Command}))
		return
	}
	hook, ok := cmd.(ReplyHandler)
	if !ok {
		x.reply(inv, inv.T("MsgReplyUnsupported", map[string]any{"Name": entry.Command}))
		return
	}

	meta := cmd.Meta()
	if meta.Interact == InteractRequester && entry.UserID != 0 && entry.UserID != inv.UserID {
		x.metrics.RecordUpdateIgnored("not_requester")
		return
	}

	inv.command = meta.Name
	inv.Log = inv.Log.With(tracing.CommandIssued, meta.Name, tracing.SessionKey, key)
	args := strings.Fields(messageText(inv.Message))
	ctx := &ReplyContext{Invocation: inv, Entry: entry, Replied: replied, Args: args}

	start := time.Now()
	err = x.guard(inv.Log, meta.Name, "reply", func() error { return hook.OnReply(ctx) })
	elapsed := time.Since(start)

	x.trace(inv, tracing.CommandIssued, meta.Name, args, elapsed)

	if err != nil {
		inv.Log.E("Reply handler failed", tracing.InnerError, err)
		x.reply(inv, inv.T("MsgReplyError", map[string]any{"Error": err.Error()}))
		x.record(inv, kindReply, meta.Name, args, repository.OutcomeFailed, err, elapsed)
		return
	}
	x.record(inv, kindReply, meta.Name, args, repository.OutcomeOk, nil, elapsed)
}

func (x *Dispatcher) runEvents(inv Invocation) {
	var kind EventType
	switch {
	case len(inv.Message.NewChatMembers) > 0:
		kind = EventWelcome
	case inv.Message.LeftChatMember != nil:
		kind = EventLeave
	default:
		return
	}

	for _, ev := range x.registry.Events() {
		meta := ev.Meta()
		if !meta.handles(kind) {
			continue
		}

		ctx := &EventContext{Invocation: inv, Type: kind}
		ctx.command = meta.Name
		ctx.Log = inv.Log.With(tracing.EventIssued, meta.Name)

		start := time.Now()
		err := x.guard(ctx.Log, meta.Name, string(kind), func() error { return ev.OnEvent(ctx) })
		elapsed := time.Since(start)

		x.trace(ctx.Invocation, tracing.EventIssued, meta.Name, nil, elapsed)

		if err != nil {
			ctx.Log.E("Event handler failed", tracing.InnerError, err)
			x.record(ctx.Invocation, kindEvent, meta.Name, nil, repository.OutcomeFailed, err, elapsed)
			continue
		}
		x.record(ctx.Invocation, kindEvent, meta.Name, nil, repository.OutcomeOk, nil, elapsed)
	}
}

func (x *Dispatcher) handleCallback(log *tracing.Logger, instance *telegram.Instance, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		x.metrics.RecordUpdateIgnored("inline_callback")
		return
	}
	if !instance.Owns(query.Message.Chat) {
		x.metrics.RecordUpdateIgnored("foreign_shard")
		return
	}
	x.metrics.RecordUpdateHandled(instance.Index, "callback_query")

	inv := x.invocation(log, instance, query.Message.Chat, query.Message.MessageID, query.Message, query.From)

	payload, err := sessions.Decode(query.Data)
	if err != nil {
		inv.Log.W("Undecodable callback data", tracing.InnerError, err)
		x.answer(inv, query, "", false)
		return
	}

	cmd, ok := x.registry.Lookup(payload.Command)
	hook, handles := cmd.(CallbackHandler)
	if !ok || !handles {
		x.metrics.RecordUpdateIgnored("unknown_callback")
		x.answer(inv, query, "", false)
		return
	}

	meta := cmd.Meta()
	inv.command = meta.Name
	key := payload.Key(inv.ChatID)
	inv.Log = inv.Log.With(tracing.CommandIssued, meta.Name, tracing.SessionKey, key)

	entry, err := x.tables.Callbacks.Get(inv.Log, key)
	if err == nil && entry.Command != meta.Name {
		inv.Log.W("Callback session belongs to another command", "owner", entry.Command)
		x.metrics.RecordCommandRejected("session_mismatch")
		x.answer(inv, query, inv.T("MsgSessionExpired"), false)
		return
	}
	if err != nil {
		if !errors.Is(err, sessions.ErrSessionNotFound) {
			inv.Log.E("Callback session lookup failed", tracing.InnerError, err)
		}
		if key != "" {
			_ = x.tables.Callbacks.Delete(inv.Log, key)
		}
		x.metrics.RecordCommandRejected("session_expired")
		x.answer(inv, query, inv.T("MsgSessionExpired"), false)
		return
	}

	if meta.Interact == InteractRequester && entry.UserID != 0 && entry.UserID != inv.UserID {
		x.metrics.RecordCommandRejected("not_requester")
		x.answer(inv, query, inv.T("MsgNotRequester"), true)
		return
	}

	ctx := &CallbackContext{Invocation: inv, Query: query, Payload: payload, Entry: entry}

	start := time.Now()
	err = x.guard(inv.Log, meta.Name, "callback", func() error { return hook.OnCallback(ctx) })
	elapsed := time.Since(start)

	x.trace(inv, tracing.CommandIssued, meta.Name, payload.Args, elapsed)

	if err != nil {
		inv.Log.E("Callback handler failed", tracing.InnerError, err)
		if !ctx.answered {
			x.answer(inv, query, inv.T("MsgCommandError", map[string]any{"Name": meta.Name, "Error": err.Error()}), true)
		}
		x.record(inv, kindCallback, meta.Name, payload.Args, repository.OutcomeFailed, err, elapsed)
		return
	}
	if !ctx.answered {
		x.answer(inv, query, "", false)
	}
	x.record(inv, kindCallback, meta.Name, payload.Args, repository.OutcomeOk, nil, elapsed)
}

func (x *Dispatcher) reject(inv Invocation, reason, message string, data map[string]any) {
	x.metrics.RecordCommandRejected(reason)
	inv.Log.D("Command rejected", tracing.RejectReason, reason)
	x.reply(inv, inv.T(message, data))
}

func (x *Dispatcher) reply(inv Invocation, text string) {
	if _, err := inv.Response.Reply(text); err != nil {
		inv.Log.E("Failed to reply", tracing.InnerError, err)
	}
}

func (x *Dispatcher) answer(inv Invocation, query *tgbotapi.CallbackQuery, text string, alert bool) {
	if err := inv.Response.AnswerCallback(query.ID, text, alert); err != nil {
		inv.Log.E("Failed to answer callback", tracing.InnerError, err)
	}
}

func messageText(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func senderName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
