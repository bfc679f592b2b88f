package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName is the lookup key for products, directory entries and recipes:
// surrounding whitespace trimmed, NFC-composed, case-folded.
// "  Молоко " and "молоко" share a key; "Молоко 2.5%" does not.
func NormalizeName(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	// cases.Caser is stateful; one per call.
	return cases.Fold().String(norm.NFC.String(s))
}

// SameName reports whether a and b resolve to the same ledger row.
func SameName(a, b string) bool {
	ka := NormalizeName(a)
	return ka != "" && ka == NormalizeName(b)
}
