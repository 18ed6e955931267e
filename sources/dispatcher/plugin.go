package dispatcher

import "strings"

// Tier is the permission type a command declares.
type Tier string

const (
	TierAnyone        Tier = "anyone"
	TierVIP           Tier = "vip"
	TierOwner         Tier = "owner"
	TierAdmin         Tier = "admin"
	TierAdministrator Tier = "administrator"
	TierGroup         Tier = "group"
	TierPrivate       Tier = "private"
	TierHidden        Tier = "hidden"
)

// Role is what the invoking user is to the bot.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAnyone Role = "anyone"
)

type PrefixPolicy int

const (
	PrefixRequired PrefixPolicy = iota
	PrefixForbidden
	PrefixEither
)

// Interaction says who may follow up on a command's replies and buttons.
type Interaction int

const (
	InteractRequester Interaction = iota
	InteractAnyone
)

const HiddenCategory = "hidden"

type Meta struct {
	Name        string
	Aliases     []string
	Description string
	Guide       []string
	Category    string
	Type        Tier
	Prefix      PrefixPolicy
	// Cooldown in seconds; zero means one second.
	Cooldown int
	Interact Interaction
	// Typing keeps a typing indicator in the chat while OnStart runs.
	Typing bool
}

func (m Meta) Hidden() bool {
	return m.Type == TierHidden || strings.EqualFold(m.Category, HiddenCategory)
}

func (m Meta) tier() Tier {
	if m.Type == "" {
		return TierAnyone
	}
	return m.Type
}

// Command is a plugin started by text. The optional hooks below are discovered with
// type assertions.
type Command interface {
	Meta() Meta
	OnStart(ctx *Context) error
}

type ReplyHandler interface {
	OnReply(ctx *ReplyContext) error
}

type CallbackHandler interface {
	OnCallback(ctx *CallbackContext) error
}

// ChatHandler sees every message. Returning false stops the remaining chat hooks.
type ChatHandler interface {
	OnChat(ctx *ChatContext) (bool, error)
}

type WordHandler interface {
	OnWord(ctx *ChatContext) error
}

type EventType string

const (
	EventWelcome EventType = "welcome"
	EventLeave   EventType = "leave"
)

type EventMeta struct {
	Name        string
	Description string
	Types       []EventType
}

type Event interface {
	Meta() EventMeta
	OnEvent(ctx *EventContext) error
}

func (m EventMeta) handles(kind EventType) bool {
	for _, t := range m.Types {
		if t == kind {
			return true
		}
	}
	return false
}
