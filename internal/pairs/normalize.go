package pairs

import (
	"regexp"
	"strings"
)

var (
	// acronymBoundary splits an uppercase run from a following capitalized word: ABCDef -> ABC_Def.
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	// camelBoundary splits a lowercase letter or digit from a following capital: camelCase -> camel_Case.
	camelBoundary = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// Underscore converts an identifier to lowercase underscore form.
func Underscore(word string) string {
	word = acronymBoundary.ReplaceAllString(word, "${1}_${2}")
	word = camelBoundary.ReplaceAllString(word, "${1}_${2}")
	word = strings.ReplaceAll(word, "-", "_")
	return strings.ToLower(word)
}

// NameTokens returns the non-empty underscore-delimited segments of an
// underscored name.
func NameTokens(underscored string) []string {
	parts := strings.Split(underscored, "_")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
