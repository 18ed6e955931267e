package sessions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const maxPayloadBytes = 64

// Payload is the decoded callback_data of an inline button. The JSON form may name
// the carrying message instead of a token; Key resolves either to a table key.
type Payload struct {
	Command   string
	Token     string
	MessageID int
	Args      []string
	Page      int
}

// Key is the Callbacks table key for a press in chatID.
func (p Payload) Key(chatID int64) string {
	if p.Token == "" && p.MessageID != 0 {
		return MessageKey(chatID, p.MessageID)
	}
	return p.Token
}

type jsonPayload struct {
	Command    string          `json:"command"`
	InstanceID string          `json:"instanceId,omitempty"`
	MessageID  json.RawMessage `json:"messageId,omitempty"`
	Args       []string        `json:"args,omitempty"`
	Page       int             `json:"page,omitempty"`
}

// Encode renders command|token|arg arg... and fails when Telegram would reject it.
func Encode(p Payload) (string, error) {
	if p.Command == "" || strings.Contains(p.Command, "|") || strings.Contains(p.Token, "|") {
		return "", ErrInvalidPayload
	}

	data := p.Command + "|" + p.Token
	if len(p.Args) > 0 {
		data += "|" + strings.Join(p.Args, " ")
	}
	if len(data) > maxPayloadBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(data))
	}
	return data, nil
}

// Decode accepts the pipe form produced by Encode and the JSON form
// {"command", "instanceId"|"messageId", "args", "page"}.
func Decode(data string) (Payload, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "{") {
		return decodeJSON(data)
	}

	parts := strings.SplitN(data, "|", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Payload{}, ErrInvalidPayload
	}

	p := Payload{Command: parts[0], Token: parts[1]}
	if len(parts) == 3 {
		p.Args = strings.Fields(parts[2])
	}
	return p, nil
}

func decodeJSON(data string) (Payload, error) {
	var raw jsonPayload
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if raw.Command == "" {
		return Payload{}, ErrInvalidPayload
	}

	p := Payload{Command: raw.Command, Args: raw.Args, Page: raw.Page, Token: raw.InstanceID}
	if p.Token == "" && len(raw.MessageID) > 0 {
		var id int
		if err := json.Unmarshal(raw.MessageID, &id); err == nil {
			p.MessageID = id
		} else {
			var text string
			if err := json.Unmarshal(raw.MessageID, &text); err != nil {
				return Payload{}, fmt.Errorf("%w: messageId", ErrInvalidPayload)
			}
			if p.MessageID, err = strconv.Atoi(text); err != nil {
				return Payload{}, fmt.Errorf("%w: messageId", ErrInvalidPayload)
			}
		}
	}
	return p, nil
}
