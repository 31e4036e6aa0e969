package store

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PreviewLength is the default preview size in characters.
const PreviewLength = 100

// Preview returns a single-line summary of the record for listings.
// Images render as "[Image]"; text is sanitized and truncated to maxLen
// characters with a trailing "...".
func (r *Record) Preview(maxLen int) string {
	text, ok := r.Text()
	if !ok {
		return "[Image]"
	}

	sanitized := SanitizeLine(text)
	if sanitized == "" {
		return "[empty]"
	}
	return Truncate(sanitized, maxLen)
}

// Truncate ensures s is at most maxLen characters. If truncation is needed,
// "..." is appended.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return strings.Repeat(".", max(maxLen, 0))
	}

	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// SanitizeLine replaces control characters with spaces and collapses all
// whitespace, so the result is safe to print on one terminal line.
func SanitizeLine(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// AppName derives a display name from a bundle-style identifier
// ("com.apple.Safari" becomes "Safari").
func AppName(sourceApp string) string {
	if sourceApp == "" {
		return ""
	}
	parts := strings.Split(sourceApp, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return sourceApp
	}
	r, size := utf8.DecodeRuneInString(last)
	return string(unicode.ToUpper(r)) + last[size:]
}
