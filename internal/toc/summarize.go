package toc

import "strings"

const (
	// SummaryLen is the default title length for user text.
	SummaryLen = 48
	// FileNameLen is the longer cap used for standalone filenames and
	// assistant previews.
	FileNameLen = 60

	emptyLabel = "(empty)"
	ellipsis   = "…"
)

// Summarize collapses whitespace runs to single spaces, trims, and caps
// the result to max runes, appending an ellipsis when cut. Empty input
// yields the "(empty)" placeholder.
func Summarize(text string, max int) string {
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return emptyLabel
	}
	r := []rune(t)
	if len(r) > max {
		return string(r[:max]) + ellipsis
	}
	return t
}
