package scoring

// Substitution is a word the learner said in place of the expected one,
// paired at the same position.
type Substitution struct {
	// Original is the word the target phrase expected.
	Original string

	// Spoken is the word the learner actually said.
	Spoken string
}

// ErrorReport lists the word-level discrepancies between an attempt and its
// target phrase. Each list preserves left-to-right phrase order. A report is
// computed fresh per comparison and never mutated afterwards.
type ErrorReport struct {
	// Missed are target words with no spoken word at their position.
	Missed []string

	// Added are spoken words with no target word at their position.
	Added []string

	// Substitutions are position-aligned word pairs that differ.
	Substitutions []Substitution
}

// Clean reports whether the attempt matched the target word for word.
func (r ErrorReport) Clean() bool {
	return len(r.Missed) == 0 && len(r.Added) == 0 && len(r.Substitutions) == 0
}

// AnalyzeErrors diffs the spoken and target word sequences position by
// position. Both inputs are lowercased, trimmed, and split on whitespace.
// At each index: a target word without a spoken counterpart is missed, a
// spoken word without a target counterpart is added, and a differing pair
// is a substitution.
//
// The alignment is strictly positional, not a minimum-edit-distance
// alignment: a single inserted or dropped word shifts every later position,
// turning otherwise-correct words into substitutions. This matches how the
// learner-facing report has always behaved and is kept deliberately —
// see the package documentation before "fixing" it.
func AnalyzeErrors(spoken, target string) ErrorReport {
	spokenWords := splitWords(spoken)
	targetWords := splitWords(target)

	var report ErrorReport
	for i := 0; i < max(len(spokenWords), len(targetWords)); i++ {
		switch {
		case i >= len(spokenWords):
			report.Missed = append(report.Missed, targetWords[i])
		case i >= len(targetWords):
			report.Added = append(report.Added, spokenWords[i])
		case spokenWords[i] != targetWords[i]:
			report.Substitutions = append(report.Substitutions, Substitution{
				Original: targetWords[i],
				Spoken:   spokenWords[i],
			})
		}
	}
	return report
}
