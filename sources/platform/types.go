package platform

type ChatID int64

type ChatKind = string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSuperGroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

func IsGroupKind(kind ChatKind) bool {
	return kind == ChatGroup || kind == ChatSuperGroup
}
