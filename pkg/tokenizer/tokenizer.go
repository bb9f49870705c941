package tokenizer

import (
	"strings"
)

// CountTokens provides a rough token count estimate (~4/3 tokens per word).
// Empty or whitespace-only text counts as zero.
func CountTokens(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}
