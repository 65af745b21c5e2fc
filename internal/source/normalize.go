package source

import (
	"strings"
	"unicode"
)

// Norm removes every whitespace code point from s, including non-breaking
// and zero-width spaces. Letter case is preserved, so Norm(Norm(s)) == Norm(s).
func Norm(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || isZeroWidth(r) {
			return -1
		}
		return r
	}, s)
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}
