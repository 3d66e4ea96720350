package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/types"
)

// ReviewResponse reports the effect of a review action
type ReviewResponse struct {
	SourceID    string                 `json:"post_id"`
	RunID       string                 `json:"run_id"`
	Action      types.ReviewActionType `json:"action"`
	Status      string                 `json:"status"`
	DraftIndex  *int                   `json:"draft_index,omitempty"`
	Text        string                 `json:"text,omitempty"`
	PublishedID string                 `json:"published_id,omitempty"`
}

// handleReview applies a reviewer decision to the latest invocation of a post.
// draft_index is 0-based over the drafts that were sent to the reviewer.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req types.ReviewAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	switch req.Action {
	case types.ReviewApprove, types.ReviewRevise, types.ReviewSkip:
	default:
		s.errorResponse(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.deps.Store.LatestInvocation(r.Context(), req.SourceID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	review := &db.ReviewRecord{
		RunID:    rec.RunID,
		SourceID: rec.SourceID,
		Action:   req.Action,
		Reviewer: reviewer(r),
	}
	resp := ReviewResponse{
		SourceID: rec.SourceID,
		RunID:    rec.RunID.String(),
		Action:   req.Action,
		Status:   db.ReviewStatusFor(req.Action),
	}
	status := http.StatusOK

	switch req.Action {
	case types.ReviewApprove:
		if req.DraftIndex < 0 || req.DraftIndex >= len(rec.Accepted) {
			s.errorResponse(w, http.StatusBadRequest, "Invalid draft index")
			return
		}
		idx := req.DraftIndex
		review.DraftIndex = &idx
		review.DraftText = rec.Accepted[idx].Text
		resp.DraftIndex = &idx
		resp.Text = review.DraftText

		if s.deps.Publisher != nil {
			publishedID, err := s.deps.Publisher.Publish(r.Context(), review.DraftText, rec.SourceID)
			if err != nil {
				s.errorFromErr(w, r, &ErrPublish{Cause: err})
				return
			}
			resp.PublishedID = publishedID
		}

	case types.ReviewRevise:
		if s.deps.Requeuer == nil {
			s.errorFromErr(w, r, &ErrUnavailable{Feature: "revision queue"})
			return
		}
		review.Instruction = req.Instruction
		if err := s.deps.Requeuer.Enqueue(r.Context(), rec.Invocation(req.Instruction)); err != nil {
			s.errorFromErr(w, r, err)
			return
		}
		status = http.StatusAccepted
	}

	if err := s.deps.Store.SaveReview(r.Context(), review); err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.logger.WithField("post_id", rec.SourceID).
		WithField("action", req.Action).
		WithField("reviewer", review.Reviewer).
		Info("Review recorded")
	s.jsonResponse(w, status, resp)
}
