package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/platform"
	"chaldea/sources/telegram"
	"chaldea/sources/texting"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpPageSize = 10

// Help lists the commands the sender may use, ten per page with inline paging, or
// describes one command.
type Help struct{}

func NewHelp() *Help {
	return &Help{}
}

func (x *Help) Meta() dispatcher.Meta {
	return dispatcher.Meta{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "Displays help information for commands.",
		Guide:       []string{"<command|page|all>"},
		Category:    "system",
		Type:        dispatcher.TierAnyone,
		Prefix:      dispatcher.PrefixEither,
		Cooldown:    5,
		Interact:    dispatcher.InteractRequester,
	}
}

func (x *Help) OnStart(ctx *dispatcher.Context) error {
	arg := ""
	if len(ctx.Args) > 0 {
		arg = strings.ToLower(ctx.Args[0])
	}

	available := x.available(&ctx.Invocation)

	switch arg {
	case "all", "-all", "-a":
		_, err := ctx.Response.Reply(x.renderAll(&ctx.Invocation, available))
		return err
	}

	page, err := strconv.Atoi(arg)
	if arg != "" && err != nil {
		if cmd, ok := ctx.Registry.Resolve(arg); ok && !cmd.Meta().Hidden() {
			_, err := ctx.Response.Reply(x.renderDetail(&ctx.Invocation, cmd.Meta()), telegram.Markdown())
			return err
		}
	}
	if page < 1 {
		page = 1
	}

	text, page, pages := x.renderPage(&ctx.Invocation, available, page)
	if pages <= 1 {
		_, err := ctx.Response.Reply(text, telegram.Markdown())
		return err
	}

	_, err = ctx.Response.ReplyInteractive(text, func(messageID int) (tgbotapi.InlineKeyboardMarkup, error) {
		return x.keyboard(&ctx.Invocation, messageID, page, pages)
	}, telegram.Markdown())
	return err
}

func (x *Help) OnCallback(ctx *dispatcher.CallbackContext) error {
	page := ctx.Payload.Page
	if len(ctx.Payload.Args) > 0 {
		if n, err := strconv.Atoi(ctx.Payload.Args[0]); err == nil {
			page = n
		}
	}

	text, page, pages := x.renderPage(&ctx.Invocation, x.available(&ctx.Invocation), page)
	messageID := ctx.Query.Message.MessageID

	opts := []telegram.Option{telegram.Markdown()}
	if pages > 1 {
		keyboard, err := x.keyboard(&ctx.Invocation, messageID, page, pages)
		if err != nil {
			return err
		}
		opts = append(opts, telegram.Keyboard(keyboard))
	}

	if err := ctx.Response.EditText(messageID, text, opts...); err != nil {
		return err
	}
	return ctx.Answer("", false)
}

// available filters visible commands by what the sender is allowed to run here.
func (x *Help) available(inv *dispatcher.Invocation) []dispatcher.Meta {
	privileged := inv.IsOwner() || inv.Settings.IsAdmin(inv.UserID)
	chatType := inv.Response.Chat().Type

	var out []dispatcher.Meta
	for _, cmd := range inv.Registry.Visible() {
		meta := cmd.Meta()
		if !privileged {
			switch meta.Type {
			case dispatcher.TierOwner, dispatcher.TierAdmin:
				continue
			case dispatcher.TierVIP:
				if !inv.Store.IsVIP(inv.UserID) {
					continue
				}
			case dispatcher.TierAdministrator, dispatcher.TierGroup:
				if !platform.IsGroupKind(chatType) {
					continue
				}
			case dispatcher.TierPrivate:
				if chatType != platform.ChatPrivate {
					continue
				}
			}
		}
		out = append(out, meta)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func displayPrefix(inv *dispatcher.Invocation, meta dispatcher.Meta) string {
	if meta.Prefix == dispatcher.PrefixForbidden {
		return ""
	}
	return inv.Settings.Prefix
}

func (x *Help) renderPage(inv *dispatcher.Invocation, available []dispatcher.Meta, page int) (string, int, int) {
	pages := (len(available) + helpPageSize - 1) / helpPageSize
	if pages == 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := (page - 1) * helpPageSize
	end := min(start+helpPageSize, len(available))

	var b strings.Builder
	b.WriteString(inv.T("MsgHelpTitle"))
	b.WriteString("\n\n")
	for i, meta := range available[start:end] {
		fmt.Fprintf(&b, "%d. `%s%s`", start+i+1, displayPrefix(inv, meta), meta.Name)
		if meta.Description != "" {
			fmt.Fprintf(&b, " - %s", texting.EscapeMarkdown(meta.Description))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(inv.T("MsgHelpFooter", map[string]any{"Page": page, "Pages": pages, "Total": len(available)}))

	return b.String(), page, pages
}

func (x *Help) keyboard(inv *dispatcher.Invocation, messageID, page, pages int) (tgbotapi.InlineKeyboardMarkup, error) {
	var row []tgbotapi.InlineKeyboardButton

	if page > 1 {
		data, err := inv.MessageCallbackData(messageID, nil, strconv.Itoa(page-1))
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, err
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️", data))
	}
	if page < pages {
		data, err := inv.MessageCallbackData(messageID, nil, strconv.Itoa(page+1))
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, err
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️", data))
	}

	return tgbotapi.NewInlineKeyboardMarkup(row), nil
}

func (x *Help) renderDetail(inv *dispatcher.Invocation, meta dispatcher.Meta) string {
	prefix := displayPrefix(inv, meta)

	usage := inv.T("MsgHelpNoUsage")
	if len(meta.Guide) > 0 {
		lines := make([]string, len(meta.Guide))
		for i, guide := range meta.Guide {
			lines[i] = fmt.Sprintf("`%s%s %s`", prefix, meta.Name, guide)
		}
		usage = strings.Join(lines, "\n")
	}

	aliases := inv.T("MsgHelpNone")
	if len(meta.Aliases) > 0 {
		quoted := make([]string, len(meta.Aliases))
		for i, alias := range meta.Aliases {
			quoted[i] = "`" + alias + "`"
		}
		aliases = strings.Join(quoted, ", ")
	}

	category := meta.Category
	if category == "" {
		category = "misc"
	}

	sections := []string{
		inv.T("MsgHelpCommand", map[string]any{"Name": meta.Name}),
		inv.T("MsgHelpDescription") + "\n" + texting.EscapeMarkdown(meta.Description),
		inv.T("MsgHelpUsage") + "\n" + usage,
		inv.T("MsgHelpCategory") + "\n" + capitalize(category),
		inv.T("MsgHelpCooldown", map[string]any{"Seconds": meta.Cooldown}),
		inv.T("MsgHelpAliases") + "\n" + aliases,
	}
	return strings.Join(sections, "\n\n")
}

func (x *Help) renderAll(inv *dispatcher.Invocation, available []dispatcher.Meta) string {
	groups := map[string][]string{}
	for _, meta := range available {
		category := meta.Category
		if category == "" {
			category = "misc"
		}
		category = capitalize(category)
		groups[category] = append(groups[category], displayPrefix(inv, meta)+meta.Name)
	}

	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	blocks := make([]string, 0, len(categories))
	for _, category := range categories {
		names := groups[category]
		sort.Strings(names)

		var b strings.Builder
		fmt.Fprintf(&b, "╭─────────────✦\n│ %s\n├───✦\n", category)
		for _, name := range names {
			fmt.Fprintf(&b, "│➥ %s\n", name)
		}
		b.WriteString("╰─────────────✦")
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n") + "\n\n" + inv.T("MsgHelpTotal", map[string]any{"Total": len(available)})
}
