package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/telegram"
)

// Prefix answers the bare word "prefix" so users can discover the configured prefix.
type Prefix struct{}

func NewPrefix() *Prefix {
	return &Prefix{}
}

func (x *Prefix) Meta() dispatcher.Meta {
	return dispatcher.Meta{
		Name:        "prefix",
		Description: "Shows the command prefix of this bot.",
		Category:    "system",
		Type:        dispatcher.TierAnyone,
		Prefix:      dispatcher.PrefixEither,
		Cooldown:    5,
	}
}

func (x *Prefix) OnStart(ctx *dispatcher.Context) error {
	_, err := ctx.Response.Reply(ctx.T("MsgPrefix", map[string]any{
		"Symbols": ctx.Settings.Symbols,
		"Prefix":  ctx.Settings.Prefix,
	}), telegram.Markdown())
	return err
}
