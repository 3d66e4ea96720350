// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// IssueKind identifies what the corrector found
type IssueKind string

// Issue kinds
const (
	IssueForbiddenWord    IssueKind = "forbidden_word"
	IssueDialectViolation IssueKind = "dialect_violation"
	IssueMarkdownRemoved  IssueKind = "markdown_removed"
	IssueEmojiRemoved     IssueKind = "emoji_removed"
	IssueLengthInfo       IssueKind = "char_count"
)

// Severity grades an issue
type Severity string

// Severities
const (
	SeverityWarning   Severity = "warning"
	SeverityError     Severity = "error"
	SeverityAutoFixed Severity = "auto_fixed"
	SeverityInfo      Severity = "info"
)

// Issue is a single finding recorded by the corrector
type Issue struct {
	Kind     IssueKind `json:"type"`
	Severity Severity  `json:"severity"`
	Word     string    `json:"word,omitempty"`    // forbidden_word
	Pattern  string    `json:"pattern,omitempty"` // dialect_violation, markdown_removed
	Count    *int      `json:"count,omitempty"`   // char_count
}

// CorrectionResult is the deterministic output of correcting one text
type CorrectionResult struct {
	Original         string  `json:"original"`
	Corrected        string  `json:"corrected"`
	CharCount        int     `json:"char_count"`
	Issues           []Issue `json:"issues"`
	HasBlockingIssue bool    `json:"has_critical_issues"`
}

// CountIssues returns how many issues of the given kind were recorded
func (r CorrectionResult) CountIssues(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}
