// Package scoring turns a spoken transcript and a target phrase into a
// 0–100 accuracy score and a positional word-level error report.
//
// Scoring combines three signals over the whitespace-tokenized, lowercased
// word sequences:
//
//  1. Base similarity: position-aligned word comparison, with partial credit
//     for near-matches via [align.Similarity].
//  2. Length penalty: a deduction of up to 30 points proportional to the
//     word-count mismatch between the attempt and the target.
//  3. Word-order bonus: up to 20 points for the longest run of consecutive
//     exact positional matches, rewarding attempts that keep the target's
//     word order intact.
//
// All functions are pure and safe for concurrent use.
package scoring

import (
	"math"
	"strings"

	"github.com/parlano/parlano/pkg/align"
)

// Weight constants for the score composition. The penalty scales with the
// relative word-count mismatch; the bonus scales with the longest streak of
// exact positional matches.
const (
	lengthPenaltyWeight = 30.0
	orderBonusWeight    = 20.0
)

// Breakdown exposes the intermediate quantities behind a final score.
// All component values are on the 0–100 point scale before combination.
type Breakdown struct {
	// Base is the positional word-similarity score in [0, 100].
	Base float64

	// LengthPenalty is the word-count mismatch deduction in [0, 30].
	LengthPenalty float64

	// OrderBonus is the consecutive-match bonus in [0, 20].
	OrderBonus float64

	// Final is the rounded, clamped accuracy score in [0, 100].
	Final int
}

// Score returns the accuracy score for spoken against target, an integer in
// [0, 100]. It is shorthand for ScoreBreakdown(spoken, target).Final.
//
// Identical texts score 100 regardless of case or whitespace run-length;
// an empty attempt or empty target scores 0.
func Score(spoken, target string) int {
	return ScoreBreakdown(spoken, target).Final
}

// ScoreBreakdown computes the full score decomposition for spoken against
// target. When either input is empty after trimming, the zero Breakdown is
// returned (Final == 0).
func ScoreBreakdown(spoken, target string) Breakdown {
	if strings.TrimSpace(spoken) == "" || strings.TrimSpace(target) == "" {
		return Breakdown{}
	}

	spokenWords := splitWords(spoken)
	targetWords := splitWords(target)
	longest := max(len(spokenWords), len(targetWords))
	shortest := min(len(spokenWords), len(targetWords))

	// Base similarity: exact positional matches earn full credit, near
	// matches partial credit.
	var total float64
	for i := 0; i < shortest; i++ {
		if spokenWords[i] == targetWords[i] {
			total += 1.0
		} else {
			total += align.Similarity(spokenWords[i], targetWords[i])
		}
	}
	base := total / float64(longest) * 100

	penalty := float64(abs(len(spokenWords)-len(targetWords))) / float64(longest) * lengthPenaltyWeight

	bonus := float64(longestMatchRun(spokenWords, targetWords)) / float64(len(targetWords)) * orderBonusWeight

	final := base + bonus - penalty
	return Breakdown{
		Base:          base,
		LengthPenalty: penalty,
		OrderBonus:    bonus,
		Final:         int(math.Round(clamp(final, 0, 100))),
	}
}

// splitWords lowercases s and splits it on runs of whitespace, collapsing
// leading, trailing, and internal whitespace.
func splitWords(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// longestMatchRun returns the length of the longest run of consecutive
// positions at which spoken and target carry the same word.
func longestMatchRun(spoken, target []string) int {
	var longest, run int
	for i := 0; i < min(len(spoken), len(target)); i++ {
		if spoken[i] == target[i] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
