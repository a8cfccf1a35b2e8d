package resolve

import (
	"strings"
	"unicode"
)

// TranslationLimit bounds the text handed to the translation gateway
const TranslationLimit = 200

// Clean removes line/paragraph separators and C0/C1 control characters and
// collapses whitespace runs to a single space.
func Clean(text string) string {
	stripped := strings.Map(func(r rune) rune {
		switch {
		case r == '\u2028' || r == '\u2029':
			return -1
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(stripped), " ")
}

// Bound truncates text to at most limit runes
func Bound(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == limit {
			return strings.TrimSpace(text[:i])
		}
		n++
	}
	return text
}

// Normalize cleans text and bounds it for translation
func Normalize(text string) string {
	return Bound(Clean(text), TranslationLimit)
}

// StripSeparators drops U+2028/U+2029 and control characters. Tabs and line
// breaks become a single space; runs of whitespace are not collapsed. Used on
// every string written to disk.
func StripSeparators(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u2028' || r == '\u2029':
			return -1
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
}
