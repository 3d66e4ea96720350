// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// TrendKeywordCoverage records which trend keywords appear verbatim in a text
type TrendKeywordCoverage struct {
	HasTrendKeyword bool     `json:"has_trend_kw"`
	UsedKeywords    []string `json:"used_keywords"`
	Count           int      `json:"count"`
}

// ValidatedDraft is a draft after correction and final scoring.
// TotalScore always equals Score.Sum().
type ValidatedDraft struct {
	Type             string               `json:"type"`
	Text             string               `json:"text"`
	OriginalText     string               `json:"original_text"`
	CharCount        int                  `json:"char_count"`
	Issues           []Issue              `json:"proofread_issues"`
	HasBlockingIssue bool                 `json:"has_critical_issues"`
	Score            ScoreMap             `json:"score"`
	TotalScore       float64              `json:"total_score"`
	TrendKeywords    TrendKeywordCoverage `json:"trend_keywords"`
	HookType         string               `json:"hook_type"`
	Structure        string               `json:"structure"`
	EmotionFlow      string               `json:"emotion_flow"`
}
