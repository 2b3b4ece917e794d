package llm

import "strings"

// Normalize cleans a raw model response into a usable commit message.
// When stripQuotes is set, one layer of surrounding quotes or a code
// fence is removed. An empty or all-whitespace response is rejected as
// malformed since no amount of cleaning can recover a message from it.
func Normalize(text string, stripQuotes bool) (string, error) {
	text = strings.TrimSpace(text)

	if stripQuotes {
		text = stripFence(text)
		text = stripSurrounding(text, `"`)
		text = stripSurrounding(text, "`")
		text = stripSurrounding(text, "'")
		text = strings.TrimSpace(text)
	}

	if text == "" {
		return "", newProviderError("normalize", FailureMalformed, nil)
	}
	return text, nil
}

func stripSurrounding(s, quote string) string {
	if len(s) >= 2*len(quote) && strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) {
		return s[len(quote) : len(s)-len(quote)]
	}
	return s
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	trimmed := strings.TrimPrefix(s, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
