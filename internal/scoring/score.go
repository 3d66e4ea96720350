package scoring

import (
	"context"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/types"
)

// Scorer combines a rubric with the deterministic specificity score
type Scorer struct {
	rubric RubricEvaluator
	logger logging.Logger
}

// NewScorer creates a Scorer. A nil rubric means SelfAssessment.
func NewScorer(rubric RubricEvaluator, logger logging.Logger) *Scorer {
	if rubric == nil {
		rubric = SelfAssessment{}
	}
	return &Scorer{rubric: rubric, logger: logging.OrDiscard(logger)}
}

// Score builds the ValidatedDraft for one corrected draft. It has no failure
// path: if the rubric errors, the draft's self-assessment is used instead.
func (s *Scorer) Score(ctx context.Context, draft types.Draft, correction types.CorrectionResult, trendKeywords []string) types.ValidatedDraft {
	rubric, err := s.rubric.Evaluate(ctx, draft, correction.Corrected)
	if err != nil {
		s.logger.WithError(err).WithField("variant", draft.Type).
			Warn("Rubric evaluation failed, using self-assessment")
		rubric = draft.SelfAssessment.Clone()
	}

	scores := FinalScores(rubric, Specificity(correction.Corrected))

	return types.ValidatedDraft{
		Type:             draft.Type,
		Text:             correction.Corrected,
		OriginalText:     draft.Text,
		CharCount:        correction.CharCount,
		Issues:           correction.Issues,
		HasBlockingIssue: correction.HasBlockingIssue,
		Score:            scores,
		TotalScore:       scores[types.ScoreTotalKey],
		TrendKeywords:    TrendCoverage(correction.Corrected, trendKeywords),
		HookType:         draft.HookType,
		Structure:        draft.Structure,
		EmotionFlow:      draft.EmotionFlow,
	}
}

// FinalScores copies rubric, overwrites specificity and recomputes the total
// as the sum of every other entry.
func FinalScores(rubric types.ScoreMap, specificity int) types.ScoreMap {
	scores := rubric.Clone()
	scores[types.DimSpecificity] = float64(specificity)
	scores[types.ScoreTotalKey] = scores.Sum()
	return scores
}
