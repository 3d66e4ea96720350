package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/quote-repost/internal/types"
)

// ReviewStatus constants
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRevising = "revising"
	ReviewStatusSkipped  = "skipped"
)

// InvocationRecord is the persisted state of one pipeline invocation
type InvocationRecord struct {
	RunID               uuid.UUID              `json:"run_id"`
	SourceID            string                 `json:"post_id"`
	Author              string                 `json:"author"`
	AuthorProfile       types.AuthorProfile    `json:"author_profile"`
	Mode                types.Mode             `json:"mode"`
	SourceText          string                 `json:"source_text"`
	RevisionInstruction string                 `json:"revision_instruction,omitempty"`
	State               types.State            `json:"state"`
	Attempts            int                    `json:"attempts"`
	LastError           *string                `json:"last_error,omitempty"`
	Drafts              []types.ValidatedDraft `json:"drafts"`
	Accepted            []types.ValidatedDraft `json:"accepted"`
	TrendKeywords       []string               `json:"trend_keywords"`
	ReviewStatus        string                 `json:"review_status"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Invocation rebuilds the inbound invocation, for re-enqueueing a revision
func (r *InvocationRecord) Invocation(revision string) types.Invocation {
	return types.Invocation{
		SourceID:            r.SourceID,
		Text:                r.SourceText,
		Author:              r.Author,
		AuthorProfile:       r.AuthorProfile,
		Mode:                r.Mode,
		RevisionInstruction: revision,
	}
}

// InvocationFilters holds optional filters for listing invocations
type InvocationFilters struct {
	SourceID     string
	State        types.State
	ReviewStatus string
	Limit        int
}

// ReviewRecord is one human decision on an invocation's drafts
type ReviewRecord struct {
	ID          uuid.UUID              `json:"id"`
	RunID       uuid.UUID              `json:"run_id"`
	SourceID    string                 `json:"post_id"`
	Action      types.ReviewActionType `json:"action"`
	Reviewer    string                 `json:"reviewer,omitempty"`
	DraftIndex  *int                   `json:"draft_index,omitempty"`
	DraftText   string                 `json:"draft_text,omitempty"`
	Instruction string                 `json:"instruction,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ReviewStatusFor maps a review action to the invocation's review status
func ReviewStatusFor(action types.ReviewActionType) string {
	switch action {
	case types.ReviewApprove:
		return ReviewStatusApproved
	case types.ReviewRevise:
		return ReviewStatusRevising
	case types.ReviewSkip:
		return ReviewStatusSkipped
	default:
		return ReviewStatusPending
	}
}
