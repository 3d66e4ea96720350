// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Self-assessment dimension names returned by the generation service
const (
	DimHookStrength     = "hook_strength"
	DimStructureFit     = "structure_fit"
	DimEmotionDesign    = "emotion_design"
	DimSpecificity      = "specificity"
	DimBookmarkTrigger  = "bookmark_trigger"
	DimCharOptimal      = "char_optimal"
	DimReadingPleasure  = "reading_pleasure"
	DimThemeFreshness   = "theme_freshness"
	DimBrandConsistency = "brand_consistency"
	DimNaturalCTA       = "natural_cta"

	// ScoreTotalKey holds the sum of every other dimension
	ScoreTotalKey = "total"
)

// ScoreDimensions lists the ten dimensions in prompt order
var ScoreDimensions = []string{
	DimHookStrength,
	DimStructureFit,
	DimEmotionDesign,
	DimSpecificity,
	DimBookmarkTrigger,
	DimCharOptimal,
	DimReadingPleasure,
	DimThemeFreshness,
	DimBrandConsistency,
	DimNaturalCTA,
}

// Draft variant labels, one per construction pattern
const (
	VariantRespect     = "リスペクト型"
	VariantContrarian  = "逆説型"
	VariantDevelopment = "発展型"
)

// DraftVariants lists the construction patterns in the order the generator requests them
var DraftVariants = []string{VariantRespect, VariantContrarian, VariantDevelopment}

// RequiredDraftCount is the number of drafts every generation response must contain
const RequiredDraftCount = 3

// ScoreMap maps dimension names to numeric scores
type ScoreMap map[string]float64

// Sum adds every dimension except the total key
func (m ScoreMap) Sum() float64 {
	var sum float64
	for k, v := range m {
		if k == ScoreTotalKey {
			continue
		}
		sum += v
	}
	return sum
}

// Clone returns a copy of the map
func (m ScoreMap) Clone() ScoreMap {
	out := make(ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Draft is one generated candidate before correction and scoring
type Draft struct {
	Type           string   `json:"type" validate:"required"`
	Text           string   `json:"text" validate:"required"`
	HookType       string   `json:"hook_type"`
	Structure      string   `json:"structure"`
	EmotionFlow    string   `json:"emotion_flow"`
	SelfAssessment ScoreMap `json:"score_self_assessment" validate:"required"`
}

// GenerationResponse is the JSON object the generation service must return
type GenerationResponse struct {
	Drafts []Draft `json:"drafts" validate:"len=3,dive"`
}
