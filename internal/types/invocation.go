// Package types provides type definitions for structured data used throughout the quote-repost system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Invocation is one inbound unit of work: a source text that needs drafts
type Invocation struct {
	SourceID            string        `json:"post_id" validate:"required"`
	Text                string        `json:"text" validate:"required"`
	Author              string        `json:"author" validate:"required"`
	AuthorProfile       AuthorProfile `json:"author_profile"`
	Mode                Mode          `json:"mode,omitempty" validate:"omitempty,oneof=normal long"`
	RevisionInstruction string        `json:"revision_instruction,omitempty"`
}

// UnmarshalJSON also accepts source_id for the post ID. post_id wins when both are set.
func (i *Invocation) UnmarshalJSON(data []byte) error {
	type plain Invocation
	var aux struct {
		plain
		SourceIDAlias string `json:"source_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Invocation(aux.plain)
	if i.SourceID == "" {
		i.SourceID = aux.SourceIDAlias
	}
	return nil
}

// Validate validates the Invocation using the validator.
func (i *Invocation) Validate() error {
	validate := validator.New()
	return validate.Struct(i)
}

// Notification is handed to the notification collaborator when at least one draft passes the gate
type Notification struct {
	SourceID               string           `json:"post_id"`
	OriginalText           string           `json:"original_text"`
	Author                 string           `json:"author"`
	Drafts                 []ValidatedDraft `json:"drafts"`
	TrendKeywordsAvailable []string         `json:"trend_keywords_available"`
}

// State is a step in the lifecycle of one pipeline invocation
type State string

// Invocation states. Notified, AllRejected and Failed are terminal.
const (
	StateReceived    State = "RECEIVED"
	StateGenerating  State = "GENERATING"
	StateScoring     State = "CORRECTING_SCORING"
	StateGating      State = "GATING"
	StateNotified    State = "NOTIFIED"
	StateAllRejected State = "ALL_REJECTED"
	StateFailed      State = "FAILED"
)

// Terminal reports whether no further transitions can happen from s
func (s State) Terminal() bool {
	return s == StateNotified || s == StateAllRejected || s == StateFailed
}

// Succeeded reports whether s is a terminal success state
func (s State) Succeeded() bool {
	return s == StateNotified || s == StateAllRejected
}

// ReviewActionType is a human decision on surfaced drafts
type ReviewActionType string

// Review actions
const (
	ReviewApprove ReviewActionType = "approve"
	ReviewRevise  ReviewActionType = "revise"
	ReviewSkip    ReviewActionType = "skip"
)

// ReviewAction is the request body for a human decision on an invocation's drafts
type ReviewAction struct {
	Action      ReviewActionType `json:"action" validate:"required,oneof=approve revise skip"`
	SourceID    string           `json:"post_id" validate:"required"`
	DraftIndex  int              `json:"draft_index" validate:"gte=0"`
	Instruction string           `json:"instruction,omitempty" validate:"required_if=Action revise"`
}

// Validate validates the ReviewAction using the validator.
func (a *ReviewAction) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}
