package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/settings"
	"chaldea/sources/telegram"
	"chaldea/sources/texting"
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"strings"
)

type vipGrammar struct {
	List struct{} `cmd:""`
	Add  struct {
		ID string `arg:"" optional:""`
	} `cmd:""`
	Remove struct {
		ID string `arg:"" optional:""`
	} `cmd:""`
}

// VIP manages vip.json. Anyone may list; only bot admins may change it.
type VIP struct{}

func NewVIP() *VIP {
	return &VIP{}
}

func (x *VIP) Meta() dispatcher.Meta {
	return dispatcher.Meta{
		Name:        "vip",
		Description: "Manage VIP users (list / add / remove)",
		Guide: []string{
			"- show this guide",
			"list - list current VIPs",
			"add <uid> - add VIP (or reply to a user message)",
			"remove <uid> - remove VIP (or reply to a user message)",
		},
		Category: "admin",
		Type:     dispatcher.TierAnyone,
		Prefix:   dispatcher.PrefixEither,
		Cooldown: 2,
	}
}

func (x *VIP) OnStart(ctx *dispatcher.Context) error {
	var grammar vipGrammar
	parsed, err := texting.ParseCmd(&grammar, normalizeAction(ctx.Args))
	if err != nil {
		return ctx.Usages()
	}

	switch parsed.Selected().Name {
	case "list":
		return x.list(ctx)
	case "add":
		return x.mutate(ctx, grammar.Add.ID, true)
	case "remove":
		return x.mutate(ctx, grammar.Remove.ID, false)
	}
	return ctx.Usages()
}

func (x *VIP) list(ctx *dispatcher.Context) error {
	ids := settings.ParseIDs(ctx.Store.VIP().UID)
	if len(ids) == 0 {
		_, err := ctx.Response.Reply(ctx.T("MsgVipListEmpty"))
		return err
	}

	lines := []string{ctx.T("MsgVipListHeader"), ""}
	for i, id := range ids {
		name := texting.EscapeMarkdown(lookupName(&ctx.Invocation, id, formatID(id)))
		lines = append(lines, fmt.Sprintf("%d. %s - `%d`", i+1, name, id))
	}

	_, err := ctx.Response.Reply(strings.Join(lines, "\n"), telegram.Markdown())
	return err
}

func (x *VIP) mutate(ctx *dispatcher.Context, arg string, add bool) error {
	if !ctx.Settings.IsAdmin(ctx.UserID) {
		_, err := ctx.Response.Reply(ctx.T("MsgVipNoPermission"))
		return err
	}

	id, ok := target(ctx, arg)
	if !ok {
		_, err := ctx.Response.Reply(ctx.T("MsgVipMissingTarget"), telegram.Markdown())
		return err
	}

	who := fmt.Sprintf("%s (%d)", lookupName(&ctx.Invocation, id, "User"), id)
	data := map[string]any{"Who": who}

	var err error
	if add {
		err = ctx.Store.AddVIP(ctx.Log, id)
	} else {
		err = ctx.Store.RemoveVIP(ctx.Log, id)
	}

	switch {
	case errors.Is(err, settings.ErrAlreadyListed):
		_, err = ctx.Response.Reply(ctx.T("MsgVipAlready", data))
	case errors.Is(err, settings.ErrNotListed):
		_, err = ctx.Response.Reply(ctx.T("MsgVipNotListed", data))
	case err != nil:
		ctx.Log.E("Failed to save vip list", tracing.InnerError, err)
		_, err = ctx.Response.Reply(ctx.T("MsgVipSaveFailed", map[string]any{"Error": err.Error()}))
	case add:
		ctx.Log.I("VIP added", tracing.UserId, id)
		_, err = ctx.Response.Reply(ctx.T("MsgVipAdded", data))
	default:
		ctx.Log.I("VIP removed", tracing.UserId, id)
		_, err = ctx.Response.Reply(ctx.T("MsgVipRemoved", data))
	}
	return err
}
