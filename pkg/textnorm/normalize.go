// Package textnorm canonicalizes free-text names (communes, livestock types,
// conclusions) before comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// separators are turned into spaces by Normalize.
var separators = strings.NewReplacer("'", " ", "’", " ", "-", " ")

// Normalize lowercases, strips accents, turns apostrophes and hyphens into
// spaces and collapses whitespace (e.g. "Saint-Apollinaire" -> "saint apollinaire").
// The result is stable: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	result, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		result = strings.ToLower(s)
	}
	return collapse(separators.Replace(result))
}

// Canonical is the strict "majuscule" form used by the secondary similarity
// pass: uppercase, every rune other than a letter, digit or space becomes a
// space (underscores included), whitespace collapsed. Accents are kept.
func Canonical(s string) string {
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '_':
			return ' '
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, upper)
	return collapse(cleaned)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
