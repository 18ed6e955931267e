package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/settings"
	"chaldea/sources/texting"
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"strings"
)

type adminGrammar struct {
	List struct{} `cmd:"" help:"List bot admins."`
	Add  struct {
		ID string `arg:"" optional:""`
	} `cmd:"" help:"Add a bot admin."`
	Remove struct {
		ID string `arg:"" optional:""`
	} `cmd:"" help:"Remove a bot admin."`
}

// Admin manages the admin list of settings.json.
type Admin struct{}

func NewAdmin() *Admin {
	return &Admin{}
}

func (x *Admin) Meta() dispatcher.Meta {
	return dispatcher.Meta{
		Name:        "admin",
		Aliases:     []string{"admins", "ad"},
		Description: "Admin management command",
		Guide:       []string{"[add/list/remove]"},
		Category:    "system",
		Type:        dispatcher.TierAnyone,
		Prefix:      dispatcher.PrefixEither,
		Cooldown:    0,
	}
}

func (x *Admin) OnStart(ctx *dispatcher.Context) error {
	var grammar adminGrammar
	parsed, err := texting.ParseCmd(&grammar, normalizeAction(ctx.Args))
	if err != nil {
		return ctx.Usages()
	}

	switch parsed.Selected().Name {
	case "list":
		return x.list(ctx)
	case "add":
		return x.add(ctx, grammar.Add.ID)
	case "remove":
		return x.remove(ctx, grammar.Remove.ID)
	}
	return ctx.Usages()
}

func (x *Admin) list(ctx *dispatcher.Context) error {
	admins := ctx.Settings.AdminIDs()
	if len(admins) == 0 {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminListEmpty"))
		return err
	}

	var b strings.Builder
	b.WriteString(ctx.T("MsgAdminListHeader"))
	b.WriteString("\n\n")
	for _, id := range admins {
		chat, err := ctx.Bot.GetChat(chatInfo(id))
		if err != nil {
			ctx.Log.W("Failed to look up admin", tracing.UserId, id, tracing.InnerError, err)
			continue
		}
		handle := chat.UserName
		if handle == "" {
			handle = formatID(id)
		}
		name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
		fmt.Fprintf(&b, "%s %s\nhttps://t.me/%s\n\n", ctx.Settings.Symbols, name, handle)
	}

	_, err := ctx.Response.Reply(strings.TrimRight(b.String(), "\n"))
	return err
}

func (x *Admin) add(ctx *dispatcher.Context, arg string) error {
	if !ctx.Settings.IsAdmin(ctx.UserID) {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminNoPermission"))
		return err
	}

	id, ok := target(ctx, arg)
	if !ok {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminInvalidID"))
		return err
	}

	switch err := ctx.Store.AddAdmin(ctx.Log, id); {
	case errors.Is(err, settings.ErrAlreadyListed):
		_, err = ctx.Response.Reply(ctx.T("MsgAdminAlready"))
		return err
	case err != nil:
		ctx.Log.E("Failed to save admin list", tracing.InnerError, err)
		_, err = ctx.Response.Reply(ctx.T("MsgAdminSaveFailed"))
		return err
	}

	ctx.Log.I("Admin added", tracing.UserId, id)
	_, err := ctx.Response.Reply(ctx.T("MsgAdminAdded", map[string]any{"Who": lookupName(&ctx.Invocation, id, "User")}))
	return err
}

func (x *Admin) remove(ctx *dispatcher.Context, arg string) error {
	if !ctx.Settings.IsAdmin(ctx.UserID) {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminNoPermission"))
		return err
	}
	if len(ctx.Settings.Admin) == 0 {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminNoneToRemove"))
		return err
	}

	id, ok := target(ctx, arg)
	if !ok {
		_, err := ctx.Response.Reply(ctx.T("MsgAdminInvalidID"))
		return err
	}

	switch err := ctx.Store.RemoveAdmin(ctx.Log, id); {
	case errors.Is(err, settings.ErrNotListed):
		_, err = ctx.Response.Reply(ctx.T("MsgAdminNotListed"))
		return err
	case err != nil:
		ctx.Log.E("Failed to save admin list", tracing.InnerError, err)
		_, err = ctx.Response.Reply(ctx.T("MsgAdminSaveFailed"))
		return err
	}

	ctx.Log.I("Admin removed", tracing.UserId, id)
	_, err := ctx.Response.Reply(ctx.T("MsgAdminRemoved", map[string]any{"Who": lookupName(&ctx.Invocation, id, "User")}))
	return err
}
