// Package category maps raw livestock-type and conclusion strings to the
// fixed vocabularies used for grouping, styling and cross-tabulation.
package category

import (
	"strings"

	"github.com/hazyhaar/constats/pkg/textnorm"
)

// Other is the species category for unrecognized livestock types.
const Other = "Autres"

// Conclusion values refined from the indemnification flag.
const (
	UndeterminedCause = "Cause mortalité indéterminée"
	Compensated       = UndeterminedCause + " - dégâts indemnisés"
	Uncompensated     = UndeterminedCause + " - Sans indemnisation"
)

type speciesPrefix struct {
	prefix, category string
}

// Order matters: the first matching prefix wins.
var speciesPrefixes = []speciesPrefix{
	{"bovin", "Bovin"},
	{"caprin", "Caprin"},
	{"equin", "Equin"},
	{"ovin", "Ovin"},
	{"avicole", "Avicole"},
	{"porcin", "Porcin"},
	{"cunicole", "Cunicole"},
	{"canin", "Canin"},
}

// Species returns the species category of a raw livestock type
// ("OVINS / CAPRINS" -> "Ovin"). Unknown or empty input yields Other.
func Species(raw string) string {
	n := textnorm.Normalize(raw)
	for _, sp := range speciesPrefixes {
		if strings.HasPrefix(n, sp.prefix) {
			return sp.category
		}
	}
	return Other
}

// AllSpecies lists the nine species categories in prefix order, Other last.
func AllSpecies() []string {
	out := make([]string, 0, len(speciesPrefixes)+1)
	for _, sp := range speciesPrefixes {
		out = append(out, sp.category)
	}
	return append(out, Other)
}

// IsSpecies reports whether s is one of the nine species categories.
func IsSpecies(s string) bool {
	if s == Other {
		return true
	}
	for _, sp := range speciesPrefixes {
		if sp.category == s {
			return true
		}
	}
	return false
}

// Conclusion returns the refined conclusion (C_tech_new). Only the
// undetermined-cause conclusion is refined, from the indemnification flag
// ("OUI" / "NON", case-insensitive); everything else passes through.
func Conclusion(raw, indemnification string) string {
	if raw != UndeterminedCause {
		return raw
	}
	switch strings.ToUpper(indemnification) {
	case "OUI":
		return Compensated
	case "NON":
		return Uncompensated
	default:
		return raw
	}
}
