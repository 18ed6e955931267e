package texting

import (
	"strings"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes user-provided text for the legacy Markdown parse mode, the
// one every reply in this bot uses.
func EscapeMarkdown(input string) string {
	return markdownEscaper.Replace(input)
}
