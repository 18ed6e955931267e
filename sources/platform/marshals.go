package platform

import (
	"strconv"
	"strings"
)

// ParseChatID accepts plain ids and the "~123" spelling of negative ids used in env files.
func ParseChatID(text string) (ChatID, error) {
	str := strings.TrimSpace(text)
	if strings.HasPrefix(str, "~") {
		str = "-" + strings.TrimPrefix(str, "~")
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChatID(val), nil
}

func (c *ChatID) UnmarshalText(text []byte) error {
	val, err := ParseChatID(string(text))
	if err != nil {
		return err
	}
	*c = val
	return nil
}

func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}
