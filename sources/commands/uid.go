package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/telegram"
	"chaldea/sources/texting"
)

type UID struct{}

func NewUID() *UID {
	return &UID{}
}

func (x *UID) Meta() dispatcher.Meta {
	return dispatcher.Meta{
		Name:        "uid",
		Aliases:     []string{"id", "userid"},
		Description: "Shows your Telegram user ID or the ID of the user you replied to.",
		Guide:       []string{"- get your own user ID or the ID of a replied user"},
		Category:    "utility",
		Type:        dispatcher.TierAnyone,
		Prefix:      dispatcher.PrefixEither,
		Cooldown:    3,
	}
}

func (x *UID) OnStart(ctx *dispatcher.Context) error {
	user := ctx.Sender
	if replied := ctx.Message.ReplyToMessage; replied != nil && replied.From != nil {
		user = replied.From
	}

	name := user.FirstName
	if name == "" {
		name = "Unknown User"
	}

	_, err := ctx.Response.Reply(ctx.T("MsgUid", map[string]any{
		"Name": texting.EscapeMarkdown(name),
		"ID":   user.ID,
	}), telegram.Markdown())
	return err
}
