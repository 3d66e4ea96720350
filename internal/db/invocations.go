package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

const invocationColumns = `run_id, source_id, author, author_profile, mode, source_text, COALESCE(revision_instruction, ''),
	state, attempts, last_error, drafts, accepted, trend_keywords, review_status, created_at, updated_at`

// RecordFromOutcome converts a pipeline outcome into its persisted form
func RecordFromOutcome(out *pipeline.Outcome) InvocationRecord {
	rec := InvocationRecord{
		RunID:               out.RunID,
		SourceID:            out.Invocation.SourceID,
		Author:              out.Invocation.Author,
		AuthorProfile:       out.Invocation.AuthorProfile,
		Mode:                out.Invocation.Mode.OrDefault(),
		SourceText:          out.Invocation.Text,
		RevisionInstruction: out.Invocation.RevisionInstruction,
		State:               out.State,
		Attempts:            out.Attempts,
		Drafts:              out.Drafts,
		Accepted:            out.Accepted,
		TrendKeywords:       out.TrendKeywords,
		ReviewStatus:        ReviewStatusPending,
		CreatedAt:           out.StartedAt,
		UpdatedAt:           out.UpdatedAt,
	}
	if out.Err != nil {
		msg := out.Err.Error()
		rec.LastError = &msg
	}
	return rec
}

// SaveInvocation upserts the record for outcome. It is called on every state
// transition, so later calls overwrite earlier ones for the same run.
func (db *DB) SaveInvocation(ctx context.Context, out *pipeline.Outcome) error {
	return db.UpsertInvocation(ctx, RecordFromOutcome(out))
}

// UpsertInvocation inserts or replaces an invocation record by run ID
func (db *DB) UpsertInvocation(ctx context.Context, rec InvocationRecord) error {
	profileJSON, err := json.Marshal(rec.AuthorProfile)
	if err != nil {
		return fmt.Errorf("failed to marshal author profile: %w", err)
	}
	draftsJSON, err := marshalNullable(rec.Drafts)
	if err != nil {
		return fmt.Errorf("failed to marshal drafts: %w", err)
	}
	acceptedJSON, err := marshalNullable(rec.Accepted)
	if err != nil {
		return fmt.Errorf("failed to marshal accepted drafts: %w", err)
	}
	keywordsJSON, err := marshalNullable(rec.TrendKeywords)
	if err != nil {
		return fmt.Errorf("failed to marshal trend keywords: %w", err)
	}

	var revision *string
	if rec.RevisionInstruction != "" {
		revision = &rec.RevisionInstruction
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO invocations (run_id, source_id, author, author_profile, mode, source_text, revision_instruction,
		                          state, attempts, last_error, drafts, accepted, trend_keywords, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (run_id) DO UPDATE SET
		     state = EXCLUDED.state,
		     attempts = EXCLUDED.attempts,
		     last_error = EXCLUDED.last_error,
		     drafts = EXCLUDED.drafts,
		     accepted = EXCLUDED.accepted,
		     trend_keywords = EXCLUDED.trend_keywords,
		     updated_at = EXCLUDED.updated_at`,
		rec.RunID, rec.SourceID, rec.Author, profileJSON, string(rec.Mode), rec.SourceText, revision,
		string(rec.State), rec.Attempts, rec.LastError, draftsJSON, acceptedJSON, keywordsJSON,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save invocation %s: %w", rec.SourceID, err)
	}
	return nil
}

// GetInvocation retrieves an invocation by run ID
func (db *DB) GetInvocation(ctx context.Context, runID uuid.UUID) (*InvocationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+invocationColumns+` FROM invocations WHERE run_id = $1`, runID)
	rec, err := scanInvocation(row)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return rec, nil
}

// LatestInvocation retrieves the most recent invocation for a source post
func (db *DB) LatestInvocation(ctx context.Context, sourceID string) (*InvocationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+invocationColumns+` FROM invocations
		 WHERE source_id = $1 ORDER BY created_at DESC LIMIT 1`, sourceID)
	rec, err := scanInvocation(row)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invocation for %s: %w", sourceID, err)
	}
	return rec, nil
}

// ListInvocations retrieves recent invocations with optional filters
func (db *DB) ListInvocations(ctx context.Context, filters InvocationFilters) ([]InvocationRecord, error) {
	query, args := buildListInvocationsQuery(filters)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var records []InvocationRecord
	for rows.Next() {
		rec, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func buildListInvocationsQuery(filters InvocationFilters) (string, []any) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + invocationColumns + ` FROM invocations WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.SourceID != "" {
		query += fmt.Sprintf(" AND source_id = $%d", argNum)
		args = append(args, filters.SourceID)
		argNum++
	}
	if filters.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argNum)
		args = append(args, string(filters.State))
		argNum++
	}
	if filters.ReviewStatus != "" {
		query += fmt.Sprintf(" AND review_status = $%d", argNum)
		args = append(args, filters.ReviewStatus)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)
	return query, args
}

// SetReviewStatus updates the review status of an invocation
func (db *DB) SetReviewStatus(ctx context.Context, runID uuid.UUID, status string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE invocations SET review_status = $1, updated_at = NOW() WHERE run_id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invocation %s: %w", runID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row rowScanner) (*InvocationRecord, error) {
	var rec InvocationRecord
	var mode, state string
	var profileJSON, draftsJSON, acceptedJSON, keywordsJSON []byte

	err := row.Scan(&rec.RunID, &rec.SourceID, &rec.Author, &profileJSON, &mode, &rec.SourceText, &rec.RevisionInstruction,
		&state, &rec.Attempts, &rec.LastError, &draftsJSON, &acceptedJSON, &keywordsJSON,
		&rec.ReviewStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Mode = types.Mode(mode)
	rec.State = types.State(state)

	if err := unmarshalNullable(profileJSON, &rec.AuthorProfile); err != nil {
		return nil, fmt.Errorf("failed to decode author profile: %w", err)
	}
	if err := unmarshalNullable(draftsJSON, &rec.Drafts); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w", err)
	}
	if err := unmarshalNullable(acceptedJSON, &rec.Accepted); err != nil {
		return nil, fmt.Errorf("failed to decode accepted drafts: %w", err)
	}
	if err := unmarshalNullable(keywordsJSON, &rec.TrendKeywords); err != nil {
		return nil, fmt.Errorf("failed to decode trend keywords: %w", err)
	}
	return &rec, nil
}

// marshalNullable encodes v, mapping nil slices to SQL NULL
func marshalNullable[T any](v []T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
