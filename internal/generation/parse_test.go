package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/types"
)

func marshalDrafts(t *testing.T, drafts []types.Draft) string {
	t.Helper()
	data, err := json.Marshal(types.GenerationResponse{Drafts: drafts})
	require.NoError(t, err)
	return string(data)
}

// withoutLabels drops hook_type, structure and emotion_flow from every draft
func withoutLabels(t *testing.T, raw string) string {
	t.Helper()
	var resp map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	for _, d := range resp["drafts"] {
		delete(d, "hook_type")
		delete(d, "structure")
		delete(d, "emotion_flow")
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestParseResponse_NestedBracesInText(t *testing.T) {
	raw := "Here you go:\n" + marshalDrafts(t, []types.Draft{
		{Type: types.VariantRespect, Text: "{\"nested\": {\"x\": 1}} は文字列", SelfAssessment: fullScores(5)},
		{Type: types.VariantContrarian, Text: "閉じ }}} だけ", SelfAssessment: fullScores(5)},
		{Type: types.VariantDevelopment, Text: "開き {{{ だけ", SelfAssessment: fullScores(5)},
	}) + "\nThanks!"

	resp, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Len(t, resp.Drafts, 3)
	assert.Equal(t, "閉じ }}} だけ", resp.Drafts[1].Text)
}

func TestParseResponse_Failures(t *testing.T) {
	missingDim := fullScores(5)
	delete(missingDim, types.DimNaturalCTA)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "no object", raw: "I cannot help with that."},
		{name: "truncated", raw: `{"drafts": [{"type": "リスペクト型"`},
		{name: "two drafts", raw: marshalDrafts(t, []types.Draft{
			{Type: types.VariantRespect, Text: "a", SelfAssessment: fullScores(5)},
			{Type: types.VariantContrarian, Text: "b", SelfAssessment: fullScores(5)},
		})},
		{name: "duplicate variant", raw: marshalDrafts(t, []types.Draft{
			{Type: types.VariantRespect, Text: "a", SelfAssessment: fullScores(5)},
			{Type: types.VariantRespect, Text: "b", SelfAssessment: fullScores(5)},
			{Type: types.VariantDevelopment, Text: "c", SelfAssessment: fullScores(5)},
		})},
		{name: "blank text", raw: marshalDrafts(t, []types.Draft{
			{Type: types.VariantRespect, Text: "   ", SelfAssessment: fullScores(5)},
			{Type: types.VariantContrarian, Text: "b", SelfAssessment: fullScores(5)},
			{Type: types.VariantDevelopment, Text: "c", SelfAssessment: fullScores(5)},
		})},
		{name: "unknown variant labels", raw: marshalDrafts(t, []types.Draft{
			{Type: "x", Text: "a", SelfAssessment: fullScores(5)},
			{Type: "y", Text: "b", SelfAssessment: fullScores(5)},
			{Type: "z", Text: "c", SelfAssessment: fullScores(5)},
		})},
		{name: "missing construction labels", raw: withoutLabels(t, marshalDrafts(t, []types.Draft{
			{Type: types.VariantRespect, Text: "a", SelfAssessment: fullScores(5)},
			{Type: types.VariantContrarian, Text: "b", SelfAssessment: fullScores(5)},
			{Type: types.VariantDevelopment, Text: "c", SelfAssessment: fullScores(5)},
		}))},
		{name: "missing dimension", raw: marshalDrafts(t, []types.Draft{
			{Type: types.VariantRespect, Text: "a", SelfAssessment: fullScores(5)},
			{Type: types.VariantContrarian, Text: "b", SelfAssessment: missingDim},
			{Type: types.VariantDevelopment, Text: "c", SelfAssessment: fullScores(5)},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.raw)
			assert.Nil(t, resp)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, ReasonMalformedResponse, parseErr.Reason)
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "月収...", preview("月収30万", 2))
}
