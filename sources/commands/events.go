package commands

import (
	"chaldea/sources/dispatcher"
	"chaldea/sources/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Welcome greets new members. When the bot itself is added without admin rights it
// asks for them instead.
type Welcome struct{}

func NewWelcome() *Welcome {
	return &Welcome{}
}

func (x *Welcome) Meta() dispatcher.EventMeta {
	return dispatcher.EventMeta{
		Name:        "welcome",
		Description: "Handles new members joining the group and sends welcome messages.",
		Types:       []dispatcher.EventType{dispatcher.EventWelcome},
	}
}

func (x *Welcome) OnEvent(ctx *dispatcher.EventContext) error {
	err := x.greet(ctx)
	if err != nil {
		notifyOwners(&ctx.Invocation, "welcome", err)
	}
	return err
}

func (x *Welcome) greet(ctx *dispatcher.EventContext) error {
	chat, err := ctx.Bot.GetChat(chatInfo(ctx.ChatID))
	if err != nil {
		return err
	}
	title := chat.Title
	if title == "" {
		title = "the group"
	}

	self := ctx.Instance.Self
	for _, member := range ctx.Message.NewChatMembers {
		if member.ID != self.ID {
			continue
		}
		status, err := ctx.Bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: ctx.ChatID, UserID: self.ID},
		})
		if err != nil {
			return err
		}
		if !status.IsAdministrator() {
			_, err = ctx.Response.Send(ctx.T("MsgWelcomeBot", map[string]any{"Bot": self.FirstName, "Title": title}))
		}
		return err
	}

	for _, member := range ctx.Message.NewChatMembers {
		count, err := ctx.Bot.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: ctx.ChatID}})
		if err != nil {
			return err
		}
		if _, err := ctx.Response.Send(ctx.T("MsgWelcomeMember", map[string]any{
			"Name":  userName(&member),
			"Title": title,
			"Count": count,
		})); err != nil {
			return err
		}
	}
	return nil
}

// Goodbye says farewell to members who left or were removed.
type Goodbye struct{}

func NewGoodbye() *Goodbye {
	return &Goodbye{}
}

func (x *Goodbye) Meta() dispatcher.EventMeta {
	return dispatcher.EventMeta{
		Name:        "goodbye",
		Description: "Handles members leaving the group and sends goodbye messages.",
		Types:       []dispatcher.EventType{dispatcher.EventLeave},
	}
}

func (x *Goodbye) OnEvent(ctx *dispatcher.EventContext) error {
	left := ctx.Message.LeftChatMember
	if left == nil {
		return nil
	}

	if left.ID == ctx.Instance.Self.ID {
		ctx.Log.I("Bot was removed from chat", "by", userName(ctx.Sender))
		return nil
	}

	message := "MsgGoodbyeRemoved"
	if ctx.Sender != nil && ctx.Sender.ID == left.ID {
		message = "MsgGoodbyeLeft"
	}

	_, err := ctx.Response.Send(ctx.T(message, map[string]any{"Name": userName(left)}))
	if err != nil {
		notifyOwners(&ctx.Invocation, "goodbye", err)
	}
	return err
}

func notifyOwners(inv *dispatcher.Invocation, handler string, failure error) {
	text := inv.T("MsgEventError", map[string]any{"Name": handler, "Error": failure.Error()})
	if err := inv.Response.ForOwner(text); err != nil {
		inv.Log.W("Failed to notify owners", tracing.InnerError, err, "handler", handler)
	}
}
