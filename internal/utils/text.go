package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases and strips diacritics, punctuation and emoji so "¡Sí!"
// and "si" compare equal. Underscores survive so ids stay intact.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		if r == '_' {
			return r
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || r == '‍' || r == '️' {
			return ' '
		}
		return r
	}, out)
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Truncate cuts s to at most max runes, ending with an ellipsis when cut
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max == 1 {
		return string(r[:1])
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

// NormalizePhone strips the channel prefix and spaces from a sender address
func NormalizePhone(from string) string {
	from = strings.TrimSpace(from)
	from = strings.TrimPrefix(from, "whatsapp:")
	return strings.ReplaceAll(from, " ", "")
}

// ContainsWord reports whether phrase appears in text on word boundaries.
// Both arguments are expected to be folded.
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
