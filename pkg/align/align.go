// Package align provides the string alignment primitives underlying the
// Parlano scoring engine: Levenshtein edit distance over runes, a normalized
// similarity derived from it, and phonetic nearness helpers used to tell
// near-miss substitutions ("sounds right, spelled differently") from
// outright mismatches.
//
// All functions are pure and safe for concurrent use. Inputs are compared
// exactly as given — callers normalize case and whitespace before alignment.
package align

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Distance returns the Levenshtein edit distance between a and b: the
// minimum number of single-rune insertions, deletions, and substitutions
// required to transform a into b. Comparison is case-sensitive and operates
// on Unicode code points, so multi-byte characters count as single edits.
func Distance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	// Single-row DP over the shorter dimension.
	row := make([]int, m+1)
	for j := 0; j <= m; j++ {
		row[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= m; j++ {
			cur := row[j]
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			row[j] = min(prev+cost, min(row[j]+1, row[j-1]+1))
			prev = cur
		}
	}
	return row[m]
}

// Similarity returns a normalized similarity between a and b in [0, 1]:
//
//	(max(len(a), len(b)) − Distance(a, b)) / max(len(a), len(b))
//
// where lengths are measured in runes. Two empty strings are perfectly
// similar: Similarity("", "") == 1.
func Similarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1.0
	}
	return float64(longest-Distance(a, b)) / float64(longest)
}

// SoundsAlike reports whether a and b share at least one Double Metaphone
// phonetic code, meaning the two words would plausibly be pronounced the
// same way. Comparison is case-insensitive. Words too short to produce a
// phonetic code never sound alike.
func SoundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(strings.ToLower(a))
	bp, bs := matchr.DoubleMetaphone(strings.ToLower(b))
	for _, ca := range []string{ap, as} {
		if ca == "" {
			continue
		}
		if ca == bp || (bs != "" && ca == bs) {
			return true
		}
	}
	return false
}

// Closeness returns the Jaro-Winkler similarity between a and b in [0, 1],
// case-insensitive. Jaro-Winkler weights shared prefixes heavily, which
// suits spoken-word confusions where the onset is usually right.
func Closeness(a, b string) float64 {
	return matchr.JaroWinkler(strings.ToLower(a), strings.ToLower(b), false)
}
