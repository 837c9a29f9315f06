// Package names matches free-text client and service names. There is no foreign key
// between appointments and the client directory, so every match is a heuristic and the
// result says how it was reached.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize decomposes, strips diacritics, trims, lowercases and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// FirstToken returns the first whitespace-separated token of an already normalized name.
func FirstToken(normalized string) string {
	first, _, _ := strings.Cut(normalized, " ")
	return first
}

type MatchKind string

const (
	MatchNone      MatchKind = ""
	MatchExact     MatchKind = "exact"
	MatchPrefix    MatchKind = "prefix"
	MatchFirstName MatchKind = "first_name"
)

// MatchResult describes how two names matched. Prefix and first-name matches are
// flagged ambiguous: "Ana" also matches "Anabela".
type MatchResult struct {
	Matched   bool
	Kind      MatchKind
	Ambiguous bool
}

// MatchNames compares two client names: equal, one a prefix of the other, or same first name.
func MatchNames(a, b string) MatchResult {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return MatchResult{}
	}
	if na == nb {
		return MatchResult{Matched: true, Kind: MatchExact}
	}
	if strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na) {
		return MatchResult{Matched: true, Kind: MatchPrefix, Ambiguous: true}
	}
	if FirstToken(na) == FirstToken(nb) {
		return MatchResult{Matched: true, Kind: MatchFirstName, Ambiguous: true}
	}
	return MatchResult{}
}

// MatchText compares two free-text values by normalized equality or prefix. Used for
// service strings, where "Corte" should match "Corte + Barba".
func MatchText(a, b string) MatchResult {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return MatchResult{}
	}
	if na == nb {
		return MatchResult{Matched: true, Kind: MatchExact}
	}
	if strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na) {
		return MatchResult{Matched: true, Kind: MatchPrefix, Ambiguous: true}
	}
	return MatchResult{}
}
