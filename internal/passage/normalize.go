// Package passage loads and selects reference passages.
package passage

import (
	"strings"
	"unicode"
)

// Normalize collapses runs of whitespace to single spaces and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Printable reports whether every rune in text can be typed and displayed.
func Printable(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r == ' ' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
