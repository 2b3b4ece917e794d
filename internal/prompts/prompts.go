package prompts

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed rewrite_message.md
var rewriteMessagePromptTemplate string

//go:embed rationale_context.md
var rationaleContextTemplate string

// Style selects the instruction clause appended to the rewrite prompt.
type Style string

const (
	StyleConcise      Style = "concise"
	StyleDescriptive  Style = "descriptive"
	StyleDetailed     Style = "detailed"
	StyleConventional Style = "conventional"
)

var styleClauses = map[Style]string{
	StyleConcise:      "Style: keep the message to a single short line, no body.",
	StyleDescriptive:  "Style: a clear one-line summary; add a short body only when the change genuinely needs explanation.",
	StyleDetailed:     "Style: a one-line summary followed by a body that explains what changed and why.",
	StyleConventional: "Style: use the Conventional Commits format, e.g. \"feat: ...\", \"fix: ...\", \"refactor: ...\", with an appropriate type and optional scope.",
}

// AllStyles lists the supported styles in display order.
var AllStyles = []Style{StyleConcise, StyleDescriptive, StyleDetailed, StyleConventional}

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := styleClauses[style]; !ok {
		return "", fmt.Errorf("unknown style %q (choose one of: concise, descriptive, detailed, conventional)", s)
	}
	return style, nil
}

// BuildRewritePrompt assembles the full inference prompt for one commit.
// Pure function: same inputs always produce the same prompt.
func BuildRewritePrompt(diff, originalMessage, rationale string, style Style) (string, error) {
	clause, ok := styleClauses[style]
	if !ok {
		return "", fmt.Errorf("unknown style %q", style)
	}

	rationaleBlock := ""
	if strings.TrimSpace(rationale) != "" {
		rationaleBlock = fmt.Sprintf(rationaleContextTemplate, strings.TrimSpace(rationale))
	}

	return fmt.Sprintf(strings.TrimSpace(rewriteMessagePromptTemplate),
		diff, originalMessage, rationaleBlock, clause), nil
}
