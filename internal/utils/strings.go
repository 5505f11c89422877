package utils

import (
	"strings"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LikeEscapeChar is the ESCAPE character paired with ContainsPattern in SQL LIKE clauses.
const LikeEscapeChar = "!"

// ContainsPattern builds a lower-cased "%needle%" LIKE pattern with wildcards escaped.
func ContainsPattern(needle string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(needle))) + "%"
}
