// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Mode selects the length constraint used when generating drafts
type Mode string

const (
	// ModeNormal targets 140-280 characters
	ModeNormal Mode = "normal"
	// ModeLong targets 1,000-1,500 characters
	ModeLong Mode = "long"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeLong
}

// OrDefault returns ModeNormal when m is empty
func (m Mode) OrDefault() Mode {
	if m == "" {
		return ModeNormal
	}
	return m
}

// AuthorProfile holds free-text descriptors of the source author
type AuthorProfile struct {
	AccountID          string `json:"account_id,omitempty"`
	PrimaryTheme       string `json:"primary_theme"`
	ThinkingPattern    string `json:"thinking_pattern"`
	VocabularyFeatures string `json:"vocabulary_features"`
	HookStyle          string `json:"hook_style"`
	QuoteAngle         string `json:"quote_angle"`
	BestQuoteType      string `json:"best_quote_type,omitempty"`
}

// GenerationRequest is everything the generator needs for one invocation
type GenerationRequest struct {
	SourceText          string          `json:"source_text"`
	Profile             AuthorProfile   `json:"profile"`
	Style               StyleGuidelines `json:"style"`
	TrendKeywords       []string        `json:"trend_keywords"`
	Mode                Mode            `json:"mode"`
	RevisionInstruction string          `json:"revision_instruction,omitempty"`
}
