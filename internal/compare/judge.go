package compare

import (
	"strings"

	"vlmeval/pkg/types"
)

// Verdict is the class a free-text answer is judged to name.
type Verdict string

const (
	VerdictPositive Verdict = types.TruthPositive
	VerdictNegative Verdict = types.TruthNegative
	VerdictUnknown  Verdict = "unknown"
)

// Judge maps a free-text answer onto one of the two classification labels.
//
// The checks run in a fixed order and are asymmetric: an answer containing the
// positive label is positive unless it starts with the first word of the
// negative label; otherwise containing the negative label or starting with its
// first word makes it negative. Answers naming both labels or neither are
// ambiguous, so accuracy figures are approximate.
func Judge(answer string, labels types.ClassificationLabels) Verdict {
	a := strings.ToLower(strings.TrimSpace(answer))
	pos := strings.ToLower(strings.TrimSpace(labels.Positive))
	neg := strings.ToLower(strings.TrimSpace(labels.Negative))
	negWord := ""
	if f := strings.Fields(neg); len(f) > 0 {
		negWord = f[0]
	}
	startsNeg := negWord != "" && strings.HasPrefix(a, negWord)

	switch {
	case pos != "" && strings.Contains(a, pos) && !startsNeg:
		return VerdictPositive
	case (neg != "" && strings.Contains(a, neg)) || startsNeg:
		return VerdictNegative
	default:
		return VerdictUnknown
	}
}

// Correct reports whether answer matches the ground truth ("positive" or "negative").
func Correct(answer, truth string, labels types.ClassificationLabels) bool {
	t := strings.ToLower(strings.TrimSpace(truth))
	if t != types.TruthPositive && t != types.TruthNegative {
		return false
	}
	return string(Judge(answer, labels)) == t
}
