// Package strings holds text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultMaxLen is the width used for free text in table cells.
const DefaultMaxLen = 60

// minLen leaves room for one character plus the ellipsis.
const minLen = 4

// Truncate collapses s onto one line and shortens it to maxLen runes, the
// last three being "..." when something was cut.
func Truncate(s string, maxLen int) string {
	if maxLen < minLen {
		maxLen = minLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
