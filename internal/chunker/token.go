package chunker

import "strings"

// tokensPerWord is the rough ratio of model tokens to English words.
const tokensPerWord = 1.33

// EstimateTokens approximates the token count of text from its word count.
// Non-empty text is never estimated below one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return max(int(float64(len(strings.Fields(text)))*tokensPerWord), 1)
}

// tailWords returns roughly the last n tokens of text, or "" when text is
// not longer than that.
func tailWords(text string, n int) string {
	words := strings.Fields(text)
	keep := int(float64(n) / tokensPerWord)
	if keep <= 0 || len(words) <= keep {
		return ""
	}
	return strings.Join(words[len(words)-keep:], " ")
}
