// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// StyleGuidelines describes the author voice a draft must respect.
// It is resolved once per invocation and treated as read-only afterwards.
type StyleGuidelines struct {
	FirstPerson     []string `json:"first_person" yaml:"first_person"`
	SecondPerson    []string `json:"second_person" yaml:"second_person"`
	ForbiddenWords  []string `json:"forbidden_words" yaml:"forbidden_words"`
	DialectPatterns []string `json:"dialect_patterns" yaml:"dialect_patterns"`
}

// Clone returns a deep copy so callers can derive per-author variants without
// mutating a shared default.
func (s StyleGuidelines) Clone() StyleGuidelines {
	return StyleGuidelines{
		FirstPerson:     append([]string(nil), s.FirstPerson...),
		SecondPerson:    append([]string(nil), s.SecondPerson...),
		ForbiddenWords:  append([]string(nil), s.ForbiddenWords...),
		DialectPatterns: append([]string(nil), s.DialectPatterns...),
	}
}
