package textutil

import (
	"strings"
	"unicode"
)

// Collapse trims s and collapses every run of whitespace into a single
// space, dropping non-printable runes.
func Collapse(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate caps s to at most limit runes, a limit <= 0 means unlimited.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return strings.TrimRight(s[:i], " ")
		}
		n++
	}
	return s
}

// Head returns the first limit runes of s.
func Head(s string, limit int) string {
	return Truncate(s, limit)
}

func NormalizeName(name string) string {
	return strings.ToLower(Collapse(name))
}

// MatchName reports whether name contains one of the keywords, ignoring case
// and whitespace differences.
func MatchName(name string, keywords []string) bool {
	name = NormalizeName(name)
	for _, k := range keywords {
		k = NormalizeName(k)
		if k == "" {
			continue
		}
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}
