package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/server/middleware"
	"github.com/jonathan/quote-repost/internal/types"
)

// QueuedResponse is returned when an invocation is handed to the worker queue
type QueuedResponse struct {
	SourceID string `json:"post_id"`
	Status   string `json:"status"`
}

// InvocationResponse is the invocation record plus the error that ended it, if any
type InvocationResponse struct {
	db.InvocationRecord
	Error string `json:"error,omitempty"`
}

// ListInvocationsResponse wraps a filtered list of invocation records
type ListInvocationsResponse struct {
	Invocations []db.InvocationRecord `json:"invocations"`
	Count       int                   `json:"count"`
}

func (s *Server) decodeInvocation(r *http.Request) (types.Invocation, error) {
	var inv types.Invocation
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		return inv, &ErrValidation{Message: "Invalid request body: " + err.Error()}
	}
	if err := inv.Validate(); err != nil {
		return inv, &ErrValidation{Message: err.Error()}
	}
	return inv, nil
}

// handleCreateInvocation queues an invocation, or runs it inline with ?sync=true
// or when no queue is configured.
func (s *Server) handleCreateInvocation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.decodeInvocation(r)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	if s.deps.Requeuer != nil && r.URL.Query().Get("sync") != "true" {
		if err := s.deps.Requeuer.Enqueue(r.Context(), inv); err != nil {
			s.errorFromErr(w, r, err)
			return
		}
		s.logger.WithField("post_id", inv.SourceID).Info("Invocation queued")
		s.jsonResponse(w, http.StatusAccepted, QueuedResponse{SourceID: inv.SourceID, Status: "queued"})
		return
	}

	outcome, err := s.deps.Runner.Run(r.Context(), inv)
	if outcome == nil {
		s.errorFromErr(w, r, err)
		return
	}

	resp := InvocationResponse{InvocationRecord: db.RecordFromOutcome(outcome)}
	if err != nil {
		resp.Error = err.Error()
	}
	s.jsonResponse(w, HTTPStatus(err), resp)
}

// handleStreamInvocation runs an invocation inline and streams each state transition
func (s *Server) handleStreamInvocation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.decodeInvocation(r)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.WithError(err).Debug("Dropped progress event")
		}
	})

	outcome, err := s.deps.Runner.Run(ctx, inv)
	if outcome == nil {
		sse.WriteError(err.Error())
		return
	}

	resp := InvocationResponse{InvocationRecord: db.RecordFromOutcome(outcome)}
	if err != nil {
		resp.Error = err.Error()
		sse.WriteError(err.Error())
	}
	sse.WriteEvent("result", resp) //nolint:errcheck
	sse.WriteComplete(outcome.RunID.String(), string(outcome.State))
}

// handleGetInvocation returns one invocation record
func (s *Server) handleGetInvocation(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid invocation ID")
		return
	}

	rec, err := s.deps.Store.GetInvocation(r.Context(), runID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleListInvocations lists records filtered by post_id, state and review_status
func (s *Server) handleListInvocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := db.InvocationFilters{
		SourceID:     q.Get("post_id"),
		State:        types.State(q.Get("state")),
		ReviewStatus: q.Get("review_status"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filters.Limit = limit
	}

	records, err := s.deps.Store.ListInvocations(r.Context(), filters)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if records == nil {
		records = []db.InvocationRecord{}
	}
	s.jsonResponse(w, http.StatusOK, ListInvocationsResponse{Invocations: records, Count: len(records)})
}

// reviewer returns the authenticated reviewer, or "" outside the auth middleware
func reviewer(r *http.Request) string {
	name, _ := middleware.GetReviewer(r)
	return name
}
