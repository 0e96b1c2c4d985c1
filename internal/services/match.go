package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and drops the combining marks,
// so "Café" normalizes to "Cafe".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeText(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Matches reports whether every whitespace-separated token of query occurs
// as a substring of haystack. Comparison is case-insensitive and ignores
// diacritics; token order does not matter. An empty query matches anything.
func Matches(haystack, query string) bool {
	h := normalizeText(haystack)
	for _, token := range strings.Fields(normalizeText(query)) {
		if !strings.Contains(h, token) {
			return false
		}
	}
	return true
}
