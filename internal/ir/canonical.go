package ir

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CanonicalName returns the NFC normal form of an identifier, so names that
// render identically compare equal regardless of how they were typed.
func CanonicalName(s string) string {
	return norm.NFC.String(s)
}

// IsIdentifier reports whether s is a valid node, channel or function name:
// a letter or underscore followed by letters, digits, underscores or dots.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '.' || unicode.IsDigit(r) || unicode.IsMark(r)):
		default:
			return false
		}
	}
	return true
}
