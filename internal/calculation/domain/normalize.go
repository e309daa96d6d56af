package domain

import "regexp"

// Trailing parenthesized integer disambiguator, e.g. "Beton (2)".
var nameDisambiguator = regexp.MustCompile(`\s*\(\d+\)\s*$`)

// NormalizeMaterialName strips the trailing numbering disambiguator the
// model exporter appends when one element repeats a material, so that
// repeated materials aggregate under one name. Idempotent; returns the
// input unchanged when the pattern is absent.
func NormalizeMaterialName(name string) string {
	return nameDisambiguator.ReplaceAllString(name, "")
}
