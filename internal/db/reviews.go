package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/quote-repost/internal/types"
)

// SaveReview records a review action and moves the invocation to the
// matching review status in one transaction.
func (db *DB) SaveReview(ctx context.Context, review *ReviewRecord) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var draftText, instruction *string
	if review.DraftText != "" {
		draftText = &review.DraftText
	}
	if review.Instruction != "" {
		instruction = &review.Instruction
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO review_actions (id, run_id, source_id, action, reviewer, draft_index, draft_text, instruction, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		review.ID, review.RunID, review.SourceID, string(review.Action), review.Reviewer, review.DraftIndex,
		draftText, instruction, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save review action: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE invocations SET review_status = $1, updated_at = NOW() WHERE run_id = $2`,
		ReviewStatusFor(review.Action), review.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invocation %s: %w", review.RunID, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit review: %w", err)
	}
	return nil
}

// ListReviews retrieves the review history of a source post, oldest first
func (db *DB) ListReviews(ctx context.Context, sourceID string) ([]ReviewRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, source_id, action, reviewer, draft_index, COALESCE(draft_text, ''),
		        COALESCE(instruction, ''), created_at
		 FROM review_actions WHERE source_id = $1 ORDER BY created_at ASC`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []ReviewRecord
	for rows.Next() {
		var r ReviewRecord
		var action string
		if err := rows.Scan(&r.ID, &r.RunID, &r.SourceID, &action, &r.Reviewer, &r.DraftIndex,
			&r.DraftText, &r.Instruction, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.Action = types.ReviewActionType(action)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
