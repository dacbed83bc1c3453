package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// CountTokens gives a rough token estimate for logging: the larger of
// ~4/3 tokens per word and ~1 token per 4 characters.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	byWords := len(strings.Fields(text)) * 4 / 3
	byChars := utf8.RuneCountInString(text) / 4
	return max(byWords, byChars, 1)
}

// CountMessages sums CountTokens over each message body.
func CountMessages(contents ...string) int {
	total := 0
	for _, c := range contents {
		total += CountTokens(c)
	}
	return total
}
