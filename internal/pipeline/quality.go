package pipeline

import "strings"

// junkMessages are first lines that carry no information regardless of
// length.
var junkMessages = map[string]bool{
	"wip":          true,
	"fix":          true,
	"fixes":        true,
	"fixed":        true,
	"update":       true,
	"updates":      true,
	"updated":      true,
	"changes":      true,
	"change":       true,
	"stuff":        true,
	"misc":         true,
	"cleanup":      true,
	"clean up":     true,
	"temp":         true,
	"tmp":          true,
	"test":         true,
	"testing":      true,
	"more fixes":   true,
	"minor fixes":  true,
	"small fixes":  true,
	"bug fix":      true,
	"bugfix":       true,
	"it works":     true,
	"works now":    true,
	"save":         true,
	"checkpoint":   true,
	"initial":      true,
	"asdf":         true,
	"stuff + more": true,
}

// IsMeaningful reports whether a commit message already says enough to
// be left alone: a reasonably long, multi-word first line that is not a
// known junk phrase.
func IsMeaningful(message string, minLength int) bool {
	firstLine := message
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		firstLine = message[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	if len(firstLine) < minLength {
		return false
	}
	if junkMessages[strings.ToLower(strings.TrimRight(firstLine, ".!"))] {
		return false
	}
	return strings.Contains(firstLine, " ")
}
