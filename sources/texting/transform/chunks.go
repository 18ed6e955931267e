package transform

import "strings"

// Chunks splits text into pieces of at most cs runes, preferring to cut after a
// newline when one falls in the second half of a chunk.
func Chunks(text string, cs int) []string {
	if cs <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); {
		end := i + cs
		if end >= len(runes) {
			chunks = append(chunks, string(runes[i:]))
			break
		}

		if cut := strings.LastIndex(string(runes[i:end]), "\n"); cut >= 0 {
			if n := len([]rune(string(runes[i:end])[:cut])) + 1; n > cs/2 {
				end = i + n
			}
		}

		chunks = append(chunks, string(runes[i:end]))
		i = end
	}
	return chunks
}
