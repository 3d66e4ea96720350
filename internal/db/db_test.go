package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

func TestSchema_DefinesTables(t *testing.T) {
	schema := Schema()
	for _, table := range []string{"invocations", "review_actions", "trend_keywords", "author_styles"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestRecordFromOutcome(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out := &pipeline.Outcome{
		RunID: uuid.New(),
		Invocation: types.Invocation{
			SourceID:            "post-1",
			Text:                "元のポスト",
			Author:              "yamada",
			RevisionInstruction: "もっと短く",
		},
		State:         types.StateNotified,
		Attempts:      2,
		Accepted:      []types.ValidatedDraft{{Type: "共感型", TotalScore: 70}},
		TrendKeywords: []string{"AI"},
		StartedAt:     started,
		UpdatedAt:     started.Add(time.Minute),
	}

	rec := RecordFromOutcome(out)
	assert.Equal(t, out.RunID, rec.RunID)
	assert.Equal(t, "post-1", rec.SourceID)
	assert.Equal(t, types.ModeNormal, rec.Mode)
	assert.Equal(t, "元のポスト", rec.SourceText)
	assert.Equal(t, "もっと短く", rec.RevisionInstruction)
	assert.Equal(t, types.StateNotified, rec.State)
	assert.Equal(t, 2, rec.Attempts)
	assert.Nil(t, rec.LastError)
	assert.Len(t, rec.Accepted, 1)
	assert.Equal(t, ReviewStatusPending, rec.ReviewStatus)
	assert.Equal(t, started, rec.CreatedAt)
}

func TestRecordFromOutcome_CarriesError(t *testing.T) {
	out := &pipeline.Outcome{State: types.StateFailed, Err: errors.New("generation failed")}

	rec := RecordFromOutcome(out)
	require.NotNil(t, rec.LastError)
	assert.Equal(t, "generation failed", *rec.LastError)
}

func TestBuildListInvocationsQuery(t *testing.T) {
	tests := []struct {
		name     string
		filters  InvocationFilters
		contains []string
		args     []any
	}{
		{
			name:     "defaults",
			filters:  InvocationFilters{},
			contains: []string{"ORDER BY created_at DESC LIMIT $1"},
			args:     []any{50},
		},
		{
			name:     "all filters",
			filters:  InvocationFilters{SourceID: "p", State: types.StateNotified, ReviewStatus: ReviewStatusPending, Limit: 5},
			contains: []string{"source_id = $1", "state = $2", "review_status = $3", "LIMIT $4"},
			args:     []any{"p", "NOTIFIED", "pending", 5},
		},
		{
			name:     "state only",
			filters:  InvocationFilters{State: types.StateFailed, Limit: 10},
			contains: []string{"state = $1", "LIMIT $2"},
			args:     []any{"FAILED", 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListInvocationsQuery(tt.filters)
			for _, part := range tt.contains {
				assert.Contains(t, query, part)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestReviewStatusFor(t *testing.T) {
	assert.Equal(t, ReviewStatusApproved, ReviewStatusFor(types.ReviewApprove))
	assert.Equal(t, ReviewStatusRevising, ReviewStatusFor(types.ReviewRevise))
	assert.Equal(t, ReviewStatusSkipped, ReviewStatusFor(types.ReviewSkip))
	assert.Equal(t, ReviewStatusPending, ReviewStatusFor("unknown"))
}

func TestMarshalNullable(t *testing.T) {
	data, err := marshalNullable[string](nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalNullable([]string{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	var out []string
	require.NoError(t, unmarshalNullable(nil, &out))
	assert.Nil(t, out)
	require.NoError(t, unmarshalNullable([]byte(`["a"]`), &out))
	assert.Equal(t, []string{"a"}, out)
}

func TestInvocationRecord_Invocation(t *testing.T) {
	rec := InvocationRecord{
		SourceID:            "post-1",
		Author:              "yamada",
		AuthorProfile:       types.AuthorProfile{PrimaryTheme: "副業", QuoteAngle: "体験談"},
		Mode:                types.ModeLong,
		SourceText:          "元のポスト",
		RevisionInstruction: "前回の指示",
	}

	inv := rec.Invocation("数字を入れて")
	assert.Equal(t, "post-1", inv.SourceID)
	assert.Equal(t, "元のポスト", inv.Text)
	assert.Equal(t, "yamada", inv.Author)
	assert.Equal(t, "副業", inv.AuthorProfile.PrimaryTheme)
	assert.Equal(t, types.ModeLong, inv.Mode)
	assert.Equal(t, "数字を入れて", inv.RevisionInstruction, "the new instruction replaces the old one")
	assert.NoError(t, inv.Validate())
}
