// Package feedback turns a score and an error analysis into learner-facing
// coaching: ordered feedback strings, a letter grade, substitution tips, and
// a motivational message driven by recent score history.
//
// Everything here is a pure function of its arguments. History is supplied
// by the caller as a plain ordered slice of prior scores — this package
// never owns or persists it.
package feedback

import (
	"fmt"
	"strings"

	"github.com/parlano/parlano/pkg/align"
	"github.com/parlano/parlano/pkg/scoring"
)

// Bundle is the complete feedback output for one practice attempt.
// Constructed once per attempt and never mutated.
type Bundle struct {
	// Score is the 0–100 accuracy score the feedback was derived from.
	Score int

	// Grade is the letter grade token (A+ … F).
	Grade string

	// Feedback is the ordered list of coaching messages.
	Feedback []string

	// Motivation is the trend-aware motivational message.
	Motivation string
}

// soundTip pairs a commonly-confused sound pattern with a pronunciation cue.
type soundTip struct {
	pattern string
	cue     string
}

// soundTips is the fixed table of commonly-confused sound patterns checked
// against every attempt, in presentation order.
var soundTips = []soundTip{
	{"th", "Practice the 'th' sound: place your tongue between your teeth and blow gently."},
	{"r", "Practice the 'r' sound: curl your tongue back without touching the roof of your mouth."},
	{"l", "Practice the 'l' sound: touch the tip of your tongue to the ridge behind your upper teeth."},
	{"v", "Practice the 'v' sound: rest your upper teeth on your lower lip and voice through."},
	{"w", "Practice the 'w' sound: round your lips as if whistling, then glide into the vowel."},
}

// genericTips are appended when the score falls below 80.
var genericTips = []string{
	"Slow down and pronounce each word separately before joining them.",
	"Listen to the target phrase again and repeat it in small chunks.",
}

// Generate returns the ordered feedback messages for an attempt: one
// score-tier message, a tip for each sound pattern present in the target but
// absent from the attempt, and two generic practice tips when the score is
// below 80. Every returned string is non-empty.
func Generate(spoken, target string, score int) []string {
	messages := []string{tierMessage(score)}

	spokenLower := strings.ToLower(spoken)
	targetLower := strings.ToLower(target)
	for _, tip := range soundTips {
		if strings.Contains(targetLower, tip.pattern) && !strings.Contains(spokenLower, tip.pattern) {
			messages = append(messages, tip.cue)
		}
	}

	if score < 80 {
		messages = append(messages, genericTips...)
	}
	return messages
}

// tierMessage selects the headline message for a score.
func tierMessage(score int) string {
	switch {
	case score >= 90:
		return "Excellent pronunciation! You nailed it."
	case score >= 80:
		return "Great job! Your pronunciation is very close."
	case score >= 70:
		return "Good effort! A few words need more work."
	case score >= 60:
		return "Keep practicing — you're getting there."
	default:
		return "Don't give up! Try the phrase slowly, one word at a time."
	}
}

// SubstitutionTips returns one tip per substitution in report, telling
// phonetic near-misses (the spoken word sounds like the expected one) apart
// from plain mismatches. Near-miss detection uses Double Metaphone overlap
// with a Jaro-Winkler fallback.
func SubstitutionTips(report scoring.ErrorReport) []string {
	const nearMissCloseness = 0.85

	tips := make([]string, 0, len(report.Substitutions))
	for _, sub := range report.Substitutions {
		if align.SoundsAlike(sub.Original, sub.Spoken) || align.Closeness(sub.Original, sub.Spoken) >= nearMissCloseness {
			tips = append(tips, fmt.Sprintf(
				"%q sounded like %q — almost there, sharpen the ending of the word.",
				sub.Spoken, sub.Original))
		} else {
			tips = append(tips, fmt.Sprintf(
				"Expected %q but heard %q — listen to the word again and mimic it.",
				sub.Original, sub.Spoken))
		}
	}
	return tips
}

// LetterGrade maps a score to one of twelve grade tokens (A+ … F) using
// stepped thresholds. Scores outside [0, 100] clamp to the nearest boundary
// grade: negative scores grade F, scores above 100 grade A+.
func LetterGrade(score int) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 67:
		return "D+"
	case score >= 65:
		return "D"
	default:
		return "F"
	}
}

// Motivation returns a trend-aware message for the current score given the
// learner's prior scores, oldest first. With no history it returns a welcome
// message. Otherwise the current score is compared against the mean of the
// last three prior scores and one of five tiered messages is selected.
func Motivation(current int, prior []int) string {
	if len(prior) == 0 {
		return "Welcome! Let's see how your pronunciation improves with practice."
	}

	window := prior
	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	var sum int
	for _, s := range window {
		sum += s
	}
	recentAvg := float64(sum) / float64(len(window))
	improvement := float64(current) - recentAvg

	switch {
	case improvement > 10:
		return "Incredible progress! You've improved dramatically."
	case improvement > 5:
		return "You're clearly improving — keep up the momentum!"
	case improvement > 0:
		return "Steady progress. Every attempt counts."
	case improvement > -5:
		return "Holding steady. Push a little more on the tricky words."
	default:
		return "A dip happens to everyone — take a breath and try again."
	}
}

// Compose builds the complete [Bundle] for an attempt: the ordered feedback
// from [Generate] plus [SubstitutionTips], the letter grade, and the
// motivational message derived from prior scores.
func Compose(spoken, target string, score int, report scoring.ErrorReport, prior []int) Bundle {
	messages := Generate(spoken, target, score)
	messages = append(messages, SubstitutionTips(report)...)
	return Bundle{
		Score:      score,
		Grade:      LetterGrade(score),
		Feedback:   messages,
		Motivation: Motivation(score, prior),
	}
}
