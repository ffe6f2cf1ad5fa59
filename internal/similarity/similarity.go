// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity provides the string and set measures shared by link
// inference, entity canonicalization, and reference repair.
package similarity

import (
	"strings"
	"unicode"
)

// Normalize case-folds s, replaces punctuation with spaces, and collapses
// whitespace. "Ghost-1" and "ghost 1" normalize to the same string.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Distance returns the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Ratio returns 1 − distance/maxLen for two already-normalized strings.
// Two empty strings are identical (1.0).
func Ratio(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(a, b))/float64(maxLen)
}

// String returns the normalized similarity of two raw strings in [0, 1].
// Strings that normalize to nothing never match anything.
func String(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return Ratio(na, nb)
}

// Set is a string set.
type Set map[string]struct{}

// NewSet builds a Set from items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports whether item is in s.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Shared returns |a ∩ b|.
func Shared(a, b Set) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b.Has(k) {
			n++
		}
	}
	return n
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	shared := Shared(a, b)
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
