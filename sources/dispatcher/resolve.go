package dispatcher

import "strings"

// Parsed is a message text split into a command invocation.
type Parsed struct {
	PrefixUsed bool
	// Typed is the command token as the user wrote it, without prefix and mention.
	Typed   string
	Name    string
	Mention string
	Args    []string
}

// ParseCommandText splits text into prefix, name, @mention and arguments. ok is
// false when nothing follows the prefix. An empty prefix never counts as used.
func ParseCommandText(prefix, text string) (parsed Parsed, ok bool) {
	body := text
	if prefix != "" && strings.HasPrefix(text, prefix) {
		parsed.PrefixUsed = true
		body = text[len(prefix):]
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return parsed, false
	}

	token := fields[0]
	if at := strings.Index(token, "@"); at >= 0 {
		parsed.Mention = token[at+1:]
		token = token[:at]
	}
	if token == "" {
		return parsed, false
	}

	parsed.Typed = token
	parsed.Name = strings.ToLower(token)
	parsed.Args = fields[1:]
	return parsed, true
}

// MentionMatches reports whether a parsed @mention is absent or names username.
func (p Parsed) MentionMatches(username string) bool {
	return p.Mention == "" || strings.EqualFold(p.Mention, username)
}
