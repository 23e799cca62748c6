package scraper

import (
	"strings"
	"unicode"
)

// NormalizeModel canonicalizes a manufacturer model number into the token used
// to build catalog URLs: alphanumeric characters only, uppercased, with a
// trailing "HC" dropped. Idempotent; empty input yields empty output.
func NormalizeModel(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return strings.TrimSuffix(b.String(), "HC")
}
