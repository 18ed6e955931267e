package tracing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	ExecutionTime   = "exe_time"
	OutsiderKind    = "outsider_kind"
	ProxyUrl        = "proxy_url"
	ProxyRes        = "proxy_res"
	InnerError      = "inner_error"
	UserId          = "user_id"
	UserName        = "user_name"
	ChatType        = "chat_type"
	ChatId          = "chat_id"
	MessageId       = "message_id"
	MessageDate     = "message_date"
	UpdateId        = "update_id"
	UpdateKind      = "update_kind"
	InstanceIndex   = "instance_index"
	InstanceTotal   = "instance_total"
	InstanceBot     = "instance_bot"
	CommandIssued   = "command_issued"
	CommandArgs     = "command_args"
	CommandTier     = "command_tier"
	EventIssued     = "event_issued"
	SessionKey      = "session_key"
	SessionTable    = "session_table"
	RejectReason    = "reject_reason"
	CooldownLeft    = "cooldown_left"
	SqlQuery        = "sql_query"
	Scope           = "scope"
	InternalCommand = "internal_command"
)

type Logger struct {
	log *slog.Logger
	ctx context.Context
}

func NewConsoleLogger() *Logger {
	return newLogger(os.Stdout, slog.LevelDebug)
}

// NewDiscardLogger is used by tests and tools that want the Logger API without output.
func NewDiscardLogger() *Logger {
	return newLogger(io.Discard, slog.LevelError)
}

func newLogger(w io.Writer, level slog.Level) *Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	logger.InfoContext(ctx, "Initializing logger")
	return &Logger{log: logger, ctx: context.Background()}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{log: l.log.With(args...), ctx: l.ctx}
}

func (l *Logger) D(msg string, args ...any) {
	l.log.DebugContext(l.ctx, msg, args...)
}

func (l *Logger) I(msg string, args ...any) {
	l.log.InfoContext(l.ctx, msg, args...)
}

func (l *Logger) W(msg string, args ...any) {
	l.log.WarnContext(l.ctx, msg, args...)
}

func (l *Logger) E(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
}

func (l *Logger) F(msg string, args ...any) {
	l.log.ErrorContext(l.ctx, msg, args...)
	panic(msg)
}
