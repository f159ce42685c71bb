// Package difficulty rates how hard a phrase is to pronounce, using lexical
// heuristics over the surface text: word count, average word length,
// phoneme-cluster substrings, and tongue-twister alliteration patterns.
//
// Two ratings are offered. [Analyze] buckets a phrase into one of three
// tiers for phrase-bank categorization; [Rate] produces a finer 1–10 score
// used for practice-suggestion tuning. Both are pure functions of the
// phrase text.
package difficulty

import (
	"math"
	"strings"
)

// Tier classifies a phrase's inherent pronunciation challenge.
type Tier string

const (
	Basic        Tier = "basic"
	Intermediate Tier = "intermediate"
	Advanced     Tier = "advanced"
)

// IsValid reports whether t is a recognised difficulty tier.
func (t Tier) IsValid() bool {
	switch t {
	case Basic, Intermediate, Advanced:
		return true
	}
	return false
}

// complexSounds are digraph clusters that commonly trip up learners.
var complexSounds = []string{"th", "sh", "ch", "ng", "qu", "ck", "ph"}

// hardPatterns are the phoneme-adjacent substrings counted by [Rate].
var hardPatterns = []string{"th", "zh", "ng", "tion", "sion"}

// Analyze buckets phrase into a [Tier]:
//
//   - Advanced: more than 15 words, average word length above 6, or a
//     tongue-twister alliteration (two or more words opening with the same
//     character).
//   - Intermediate: more than 10 words, average word length above 5, or any
//     complex sound cluster (th, sh, ch, ng, qu, ck, ph).
//   - Basic: everything else, including the empty phrase.
func Analyze(phrase string) Tier {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return Basic
	}

	var chars int
	for _, w := range words {
		chars += len([]rune(w))
	}
	avgWordLength := float64(chars) / float64(len(words))

	hasComplexSounds := false
	lower := strings.ToLower(phrase)
	for _, s := range complexSounds {
		if strings.Contains(lower, s) {
			hasComplexSounds = true
			break
		}
	}

	switch {
	case len(words) > 15 || avgWordLength > 6 || hasAlliteration(words, 2):
		return Advanced
	case len(words) > 10 || avgWordLength > 5 || hasComplexSounds:
		return Intermediate
	default:
		return Basic
	}
}

// Rate scores phrase on a 1–10 scale. It accumulates difficulty points —
// two per word longer than 7 characters, one per consonant-cluster run of
// three or more, one per occurrence of a hard pattern (th, zh, ng, tion,
// sion), and an alliteration score (for each opening letter shared by three
// or more words, count − 2) — then normalizes by word count:
//
//	round(clamp(points / wordCount * 5, 1, 10))
//
// The empty phrase rates 1.
func Rate(phrase string) int {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return 1
	}

	var points float64
	for _, w := range words {
		if len([]rune(w)) > 7 {
			points += 2
		}
	}
	points += float64(consonantClusters(strings.ToLower(phrase)))
	lower := strings.ToLower(phrase)
	for _, p := range hardPatterns {
		points += float64(strings.Count(lower, p))
	}
	points += float64(alliterationScore(words))

	normalized := points / float64(len(words)) * 5
	return int(math.Round(clamp(normalized, 1, 10)))
}

// hasAlliteration reports whether any opening character begins at least
// threshold of the phrase's words.
func hasAlliteration(words []string, threshold int) bool {
	initials := make(map[rune]int, len(words))
	for _, w := range words {
		r := []rune(w)[0]
		initials[r]++
		if initials[r] >= threshold {
			return true
		}
	}
	return false
}

// alliterationScore sums count−2 over every opening letter that begins
// three or more words, so longer alliterative chains weigh more.
func alliterationScore(words []string) int {
	initials := make(map[rune]int, len(words))
	for _, w := range words {
		initials[[]rune(w)[0]]++
	}
	score := 0
	for _, n := range initials {
		if n >= 3 {
			score += n - 2
		}
	}
	return score
}

// consonantClusters counts maximal runs of three or more consecutive
// consonant letters. Non-letters break a run; y counts as a consonant.
func consonantClusters(s string) int {
	isVowel := func(r rune) bool {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			return true
		}
		return false
	}
	isConsonant := func(r rune) bool {
		return r >= 'a' && r <= 'z' && !isVowel(r)
	}

	var clusters, run int
	for _, r := range s {
		if isConsonant(r) {
			run++
			continue
		}
		if run >= 3 {
			clusters++
		}
		run = 0
	}
	if run >= 3 {
		clusters++
	}
	return clusters
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
