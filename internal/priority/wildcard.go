package priority

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyPattern is returned by Compile for blank patterns.
var ErrEmptyPattern = errors.New("empty pattern")

// Wildcard is the only metacharacter understood in index patterns.
const Wildcard = "*"

// Compile turns an index pattern into an anchored, case-insensitive regular
// expression in which "*" matches any run of characters.
func Compile(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, ErrEmptyPattern
	}
	parts := strings.Split(pattern, Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("(?i)^" + strings.Join(parts, ".*?") + "$")
}

// Representative approximates the indices a pattern would create by dropping
// its wildcards: "logs-*-2024" becomes "logs--2024".
func Representative(pattern string) string {
	return strings.ReplaceAll(pattern, Wildcard, "")
}
