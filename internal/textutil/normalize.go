package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctReplacer maps the punctuation characters that commonly vary between a
// catalog title and a search-service title to plain spaces. Dashes, interpuncts,
// and quote characters are the usual offenders.
var punctReplacer = strings.NewReplacer(
	"-", " ",
	"–", " ", // en dash
	"—", " ", // em dash
	"_", " ",
	"·", " ", // middle dot
	"•", " ", // bullet
	",", " ",
	":", " ",
	";", " ",
	"!", " ",
	"?", " ",
	".", " ",
	"'", " ",
	"\"", " ",
)

// decomposer splits accented characters into base character plus combining
// marks and drops the marks, so "Beyoncé" and "Beyonce" compare equal.
var decomposer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize canonicalizes free text for token comparison: lowercase, strip
// diacritics, convert punctuation to spaces, collapse whitespace, trim.
// Normalize is idempotent.
func Normalize(s string) string {
	lowered := strings.ToLower(s)
	stripped, _, err := transform.String(decomposer, lowered)
	if err != nil {
		stripped = lowered
	}
	spaced := punctReplacer.Replace(stripped)
	return strings.Join(strings.Fields(spaced), " ")
}
