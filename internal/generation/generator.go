package generation

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/types"
)

// DefaultMaxAttempts is one initial call plus two retries
const DefaultMaxAttempts = 3

// DefaultCallTimeout bounds a single generation call
const DefaultCallTimeout = 120 * time.Second

// Options configures a Generator. Zero values select the defaults.
type Options struct {
	Tier         llm.ModelTier
	MaxAttempts  int
	Backoff      time.Duration
	CallTimeout  time.Duration
	KeywordLimit int
	Logger       logging.Logger
	// OnAttempt is called after every attempt with its 1-based number and outcome
	OnAttempt func(attempt int, err error)
}

// Result is a successful generation
type Result struct {
	Drafts   []types.Draft
	Attempts int
	Model    string
}

// Generator builds the drafting prompt, calls the model and validates the reply
type Generator struct {
	client llm.Client
	opts   Options
	logger logging.Logger
}

// New creates a Generator around an LLM client
func New(client llm.Client, opts Options) *Generator {
	if opts.Tier == "" {
		opts.Tier = llm.TierAdvanced
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = DefaultKeywordLimit
	}
	return &Generator{
		client: client,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// Generate returns exactly three validated drafts or an *Error carrying the
// last attempt's *TransportError or *ParseError.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (*Result, error) {
	prompt, err := BuildPrompt(req, g.opts.KeywordLimit)
	if err != nil {
		return nil, &Error{Attempts: 0, Cause: err}
	}

	attempts := 0
	policy := g.retryPolicy()

	resp, err := failsafe.With(policy).WithContext(ctx).Get(func() (*types.GenerationResponse, error) {
		attempts++
		resp, err := g.attempt(ctx, prompt)
		if g.opts.OnAttempt != nil {
			g.opts.OnAttempt(attempts, err)
		}
		return resp, err
	})
	if err != nil {
		// attempts is zero when ctx was cancelled before the first call
		return nil, &Error{Attempts: attempts, Cause: err}
	}

	return &Result{
		Drafts:   resp.Drafts,
		Attempts: attempts,
		Model:    g.client.GetModel(g.opts.Tier),
	}, nil
}

// attempt runs one call. The call is detached from ctx cancellation so an
// in-flight request always completes or times out on its own.
func (g *Generator) attempt(ctx context.Context, prompt llm.Prompt) (*types.GenerationResponse, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.CallTimeout)
	defer cancel()

	raw, err := g.client.GenerateContent(callCtx, prompt, g.opts.Tier)
	if err != nil {
		return nil, &TransportError{Message: "generation call failed", Cause: err}
	}
	return ParseResponse(raw)
}

func (g *Generator) retryPolicy() retrypolicy.RetryPolicy[*types.GenerationResponse] {
	builder := retrypolicy.NewBuilder[*types.GenerationResponse]().
		HandleIf(func(_ *types.GenerationResponse, err error) bool {
			return IsRetryable(err)
		}).
		WithMaxAttempts(g.opts.MaxAttempts).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*types.GenerationResponse]) {
			g.logger.WithError(e.LastError()).WithFields(logging.Fields{
				"attempt":      e.Attempts(),
				"max_attempts": g.opts.MaxAttempts,
			}).Warn("Generation attempt failed, retrying")
		})
	if g.opts.Backoff > 0 {
		builder = builder.WithDelay(g.opts.Backoff)
	}
	return builder.Build()
}

// IsRetryable reports whether err is a transport or parse failure
func IsRetryable(err error) bool {
	var transportErr *TransportError
	var parseErr *ParseError
	return errors.As(err, &transportErr) || errors.As(err, &parseErr)
}
