package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/types"
)

// scriptedClient returns one scripted reply per call, repeating the last one
type scriptedClient struct {
	mu      sync.Mutex
	replies []reply
	prompts []llm.Prompt
	ctxErrs []error
	// during runs while the call is in flight
	during func()
}

type reply struct {
	text string
	err  error
}

func (c *scriptedClient) GenerateContent(ctx context.Context, prompt llm.Prompt, _ llm.ModelTier) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.during != nil {
		c.during()
	}
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	r := c.replies[len(c.replies)-1]
	if len(c.prompts) <= len(c.replies) {
		r = c.replies[len(c.prompts)-1]
	}
	return r.text, r.err
}

func (c *scriptedClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (c *scriptedClient) Close() error                  { return nil }

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func fullScores(v float64) types.ScoreMap {
	m := types.ScoreMap{types.ScoreTotalKey: 0}
	for _, d := range types.ScoreDimensions {
		m[d] = v
	}
	return m
}

func validResponse(t *testing.T) string {
	t.Helper()
	resp := types.GenerationResponse{Drafts: []types.Draft{
		{Type: types.VariantRespect, Text: "月収30万円は{通過点}にすぎない", HookType: "数字", SelfAssessment: fullScores(7)},
		{Type: types.VariantContrarian, Text: "稼ぐより\"残す\"が先", HookType: "逆説", SelfAssessment: fullScores(6)},
		{Type: types.VariantDevelopment, Text: "3ヶ月で変わった習慣", HookType: "体験", SelfAssessment: fullScores(8)},
	}}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func testRequest() types.GenerationRequest {
	return types.GenerationRequest{
		SourceText:    "初心者でも月収30万円稼げる方法",
		Profile:       types.AuthorProfile{PrimaryTheme: "副業", HookStyle: "数字"},
		Style:         types.StyleGuidelines{FirstPerson: []string{"俺"}, ForbiddenWords: []string{"無理"}, DialectPatterns: []string{`やん[。！？\s]*$`}},
		TrendKeywords: []string{"AI副業"},
		Mode:          types.ModeNormal,
	}
}

func TestGenerate_SuccessFirstAttempt(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: "以下です。\n```json\n" + validResponse(t) + "\n```"}}}
	g := New(client, Options{})

	result, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "fake-model", result.Model)
	require.Len(t, result.Drafts, 3)
	assert.Equal(t, "月収30万円は{通過点}にすぎない", result.Drafts[0].Text)
	assert.Equal(t, 8.0, result.Drafts[2].SelfAssessment[types.DimHookStrength])
}

func TestGenerate_SucceedsOnThirdAttempt(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		{err: errors.New("connection reset")},
		{text: "すみません、JSONを出力できませんでした"},
		{text: validResponse(t)},
	}}
	var seen []int
	g := New(client, Options{OnAttempt: func(attempt int, _ error) { seen = append(seen, attempt) }})

	result, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestGenerate_MalformedOnEveryAttempt(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: `{"drafts": [`}}}
	g := New(client, Options{})

	result, err := g.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 3, client.calls())

	var genErr *Error
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ReasonMalformedResponse, parseErr.Reason)
}

func TestGenerate_TransportFailureCarriesLastCause(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		{text: "not json"},
		{text: "not json"},
		{err: errors.New("503 service unavailable")},
	}}
	g := New(client, Options{})

	_, err := g.Generate(context.Background(), testRequest())
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate_CustomAttemptCap(t *testing.T) {
	client := &scriptedClient{replies: []reply{{err: errors.New("timeout")}}}
	g := New(client, Options{MaxAttempts: 1})

	_, err := g.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, client.calls())
}

func TestGenerate_CallDetachedFromCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedClient{replies: []reply{{text: validResponse(t)}}, during: cancel}
	g := New(client, Options{})

	_, _ = g.Generate(ctx, testRequest())
	require.Len(t, client.ctxErrs, 1)
	assert.NoError(t, client.ctxErrs[0], "caller cancellation must not reach an in-flight call")
	assert.Error(t, ctx.Err())
}

func TestGenerate_RevisionInstructionInPrompt(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: validResponse(t)}}}
	g := New(client, Options{})

	req := testRequest()
	req.RevisionInstruction = "もっと短く"
	_, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	user := client.prompts[0].User
	assert.True(t, strings.HasSuffix(user, "もっと短く"))
	assert.Contains(t, user, "## 修正指示")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&TransportError{Message: "x"}))
	assert.True(t, IsRetryable(&ParseError{Reason: ReasonMalformedResponse}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}
