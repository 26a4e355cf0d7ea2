// Package normalizer strips noise characters from raw input lines before
// segmentation.
package normalizer

import (
	"strings"
	"unicode"
)

// Normalize deletes every rune outside ASCII letters, ASCII digits,
// whitespace and the terminators '.', '!' and '?', then trims the result.
// Deleted runes are not replaced, so "don't" becomes "dont".
func Normalize(line string) string {
	cleaned := strings.Map(func(r rune) rune {
		if Allowed(r) {
			return r
		}
		return -1
	}, line)
	return strings.TrimSpace(cleaned)
}

// Allowed reports whether r survives normalization.
func Allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '!', r == '?':
		return true
	default:
		return unicode.IsSpace(r)
	}
}
