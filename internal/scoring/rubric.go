package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/prompts"
	"github.com/jonathan/quote-repost/internal/schemas"
	"github.com/jonathan/quote-repost/internal/types"
)

// RubricEvaluator supplies the subjective dimensions of a draft's score.
// The specificity dimension and the total are always overwritten afterwards.
type RubricEvaluator interface {
	Evaluate(ctx context.Context, draft types.Draft, correctedText string) (types.ScoreMap, error)
}

// SelfAssessment trusts the scores the generation service reported for the draft
type SelfAssessment struct{}

// Evaluate returns a copy of the draft's self-assessment
func (SelfAssessment) Evaluate(_ context.Context, draft types.Draft, _ string) (types.ScoreMap, error) {
	return draft.SelfAssessment.Clone(), nil
}

// LLMRubric asks a second, cheaper model call to score the corrected text
type LLMRubric struct {
	Client llm.Client
	Tier   llm.ModelTier
}

// Evaluate scores correctedText on every dimension. The reply may be fenced or
// wrapped in prose; a missing or non-numeric dimension is an error.
func (r *LLMRubric) Evaluate(ctx context.Context, draft types.Draft, correctedText string) (types.ScoreMap, error) {
	system, err := prompts.Get(prompts.ScoringFile, prompts.KeyRubricSystem)
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render(prompts.ScoringFile, prompts.KeyRubricUser, map[string]string{
		"Variant": draft.Type,
		"Text":    correctedText,
	})
	if err != nil {
		return nil, err
	}

	tier := r.Tier
	if tier == "" {
		tier = llm.TierLite
	}
	raw, err := r.Client.GenerateContent(ctx, llm.Prompt{System: system, User: user}, tier)
	if err != nil {
		return nil, fmt.Errorf("rubric call failed: %w", err)
	}

	object := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateRubricScores(object); err != nil {
		return nil, fmt.Errorf("invalid rubric response: %w", err)
	}
	var scores types.ScoreMap
	if err := json.Unmarshal([]byte(object), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse rubric scores: %w", err)
	}
	return scores, nil
}
