package utils

// Token estimates approximate 1 token per 4 characters. That is coarse but
// provider-neutral, and only used for budgeting prompt sections.

// EstimateTokens estimates how many tokens the text will consume.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len([]rune(text)) / 4
	if n == 0 {
		return 1
	}
	return n
}

// TruncateTokens cuts text so it fits roughly within limit tokens. When the
// cut lands mid-line, the partial line is dropped so the result stays
// well-formed.
func TruncateTokens(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	out := string(runes[:charLimit])
	if i := lastNewline(out); i >= 0 {
		out = out[:i+1]
	}
	return out
}

func lastNewline(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}
