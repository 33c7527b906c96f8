package timeparse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Go's \b only knows ASCII word characters, so Cyrillic word boundaries are
// checked by hand.

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// indexWord returns the byte offset of the first occurrence of word in s that
// is not glued to other letters or digits, or -1.
func indexWord(s, word string) int {
	if word == "" {
		return -1
	}
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		if boundedAt(s, i, i+len(word)) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		from = i + size
	}
	return -1
}

func boundedAt(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// hasWord reports whether word occurs in s as a whole word.
func hasWord(s, word string) bool {
	return indexWord(s, word) >= 0
}

// removeWord deletes every whole-word occurrence of word from s.
func removeWord(s, word string) string {
	var b strings.Builder
	for {
		i := indexWord(s, word)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteByte(' ')
		s = s[i+len(word):]
	}
}

// trimWordPrefix strips prefix from s when s starts with it as a whole word.
func trimWordPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !boundedAt(s, 0, len(prefix)) {
		return s, false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}

// squeeze collapses runs of whitespace into single spaces.
func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
