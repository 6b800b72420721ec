package compare

import (
	"math"
	"strings"

	"vlmeval/pkg/types"
)

// Pairwise compares the first two successful results. It returns nil when
// fewer than two results succeeded.
//
// On ties the second model is named faster or more efficient.
func Pairwise(results []types.InferenceResult) *types.PairwiseComparison {
	var ok []types.InferenceResult
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
			if len(ok) == 2 {
				break
			}
		}
	}
	if len(ok) < 2 {
		return nil
	}
	a, b := ok[0], ok[1]
	sa, sb := a.Success, b.Success

	c := &types.PairwiseComparison{}
	diff := math.Abs(sa.ProcessingTimeSeconds - sb.ProcessingTimeSeconds)
	c.TimeDifference = round(diff, 3)
	c.FasterModel = b.Model
	if sa.ProcessingTimeSeconds < sb.ProcessingTimeSeconds {
		c.FasterModel = a.Model
	}
	if mean := (sa.ProcessingTimeSeconds + sb.ProcessingTimeSeconds) / 2; mean > 0 {
		pct := round(diff/mean*100, 1)
		c.TimeDifferencePercent = &pct
	}

	if sa.TokensPerSecond != nil && sb.TokensPerSecond != nil {
		d := round(math.Abs(*sa.TokensPerSecond-*sb.TokensPerSecond), 2)
		c.TokensPerSecondDiff = &d
		c.FasterTokensModel = b.Model
		if *sa.TokensPerSecond > *sb.TokensPerSecond {
			c.FasterTokensModel = a.Model
		}
	}

	if sa.TotalTokens != nil && sb.TotalTokens != nil {
		d := *sa.TotalTokens - *sb.TotalTokens
		if d < 0 {
			d = -d
		}
		c.TotalTokensDiff = &d
		c.MoreEfficientModel = b.Model
		if *sa.TotalTokens < *sb.TotalTokens {
			c.MoreEfficientModel = a.Model
		}
	}

	c.AnswersMatch = SameAnswer(sa.Entity, sb.Entity)
	c.AnswerSimilarity = "different"
	if c.AnswersMatch {
		c.AnswerSimilarity = "identical"
	}
	return c
}

// SameAnswer is case-insensitive exact equality.
func SameAnswer(a, b string) bool { return strings.EqualFold(a, b) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
