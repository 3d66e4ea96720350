// Package pipeline runs one quote-repost invocation from source post to reviewer notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/quote-repost/internal/correction"
	"github.com/jonathan/quote-repost/internal/gate"
	"github.com/jonathan/quote-repost/internal/generation"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/scoring"
	"github.com/jonathan/quote-repost/internal/types"
)

// DefaultNotifyKeywordLimit caps the trend keywords sent with a notification
const DefaultNotifyKeywordLimit = 10

// DraftGenerator produces the three drafts for a request
type DraftGenerator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*generation.Result, error)
}

// TrendKeywordSource returns the active trend keywords, most relevant first
type TrendKeywordSource interface {
	TrendKeywords(ctx context.Context) ([]string, error)
}

// StyleSource returns the style guidelines for an author
type StyleSource interface {
	Style(ctx context.Context, author string) (types.StyleGuidelines, error)
}

// Notifier delivers accepted drafts to a human reviewer
type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

// Recorder persists the invocation record at every state transition.
// Recorder errors are logged and never fail the invocation.
type Recorder interface {
	SaveInvocation(ctx context.Context, outcome *Outcome) error
}

// ProgressEvent represents a state transition during an invocation
type ProgressEvent struct {
	RunID    string      `json:"run_id"`
	SourceID string      `json:"source_id"`
	State    types.State `json:"state"`
	Message  string      `json:"message"`
	Content  any         `json:"content,omitempty"`
}

// ProgressCallback is called on every state transition
type ProgressCallback func(event ProgressEvent)

type progressKey struct{}

// WithProgress returns a context whose invocation runs also report to cb,
// in addition to the Runner-wide Options.OnProgress.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

func progressFrom(ctx context.Context) ProgressCallback {
	cb, _ := ctx.Value(progressKey{}).(ProgressCallback)
	return cb
}

// Dependencies are the collaborators a Runner calls
type Dependencies struct {
	Generator DraftGenerator
	Keywords  TrendKeywordSource
	Styles    StyleSource
	Notifier  Notifier
	// Rubric defaults to the drafts' self-assessment
	Rubric   scoring.RubricEvaluator
	Recorder Recorder
}

// Options tunes a Runner. Zero values select the defaults.
type Options struct {
	// Threshold is the gate's minimum total; nil selects gate.DefaultThreshold
	Threshold          *float64
	NotifyKeywordLimit int
	Logger             logging.Logger
	Metrics            *Metrics
	OnProgress         ProgressCallback
}

// Outcome is the invocation record: where an invocation ended and what it produced
type Outcome struct {
	RunID         uuid.UUID
	Invocation    types.Invocation
	State         types.State
	Attempts      int
	Drafts        []types.ValidatedDraft
	Accepted      []types.ValidatedDraft
	TrendKeywords []string
	Err           error
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// Runner executes invocations. It holds no per-invocation state and is safe for concurrent use.
type Runner struct {
	deps      Dependencies
	opts      Options
	threshold float64
	scorer    *scoring.Scorer
	logger    logging.Logger
}

// NewRunner creates a Runner. Generator and Notifier are required.
func NewRunner(deps Dependencies, opts Options) (*Runner, error) {
	if deps.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("pipeline: notifier is required")
	}
	threshold := float64(gate.DefaultThreshold)
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if opts.NotifyKeywordLimit <= 0 {
		opts.NotifyKeywordLimit = DefaultNotifyKeywordLimit
	}
	logger := logging.OrDiscard(opts.Logger)
	return &Runner{
		deps:      deps,
		opts:      opts,
		threshold: threshold,
		scorer:    scoring.NewScorer(deps.Rubric, logger),
		logger:    logger,
	}, nil
}

// Run processes one invocation to a terminal state. NOTIFIED and ALL_REJECTED
// return a nil error. Any other outcome returns an *InvocationError.
func (r *Runner) Run(ctx context.Context, inv types.Invocation) (*Outcome, error) {
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvocation, err)
	}

	now := time.Now()
	out := &Outcome{
		RunID:      uuid.New(),
		Invocation: inv,
		StartedAt:  now,
	}
	log := r.logger.WithFields(logging.Fields{
		"run_id":    out.RunID.String(),
		"source_id": inv.SourceID,
		"author":    inv.Author,
		"mode":      string(inv.Mode.OrDefault()),
	})

	r.transition(ctx, out, types.StateReceived, "Invocation received", nil)

	keywords := r.trendKeywords(ctx, log)
	style := r.style(ctx, inv.Author, log)
	out.TrendKeywords = keywords

	// GENERATING
	r.transition(ctx, out, types.StateGenerating, "Generating drafts", nil)
	result, err := r.deps.Generator.Generate(ctx, types.GenerationRequest{
		SourceText:          inv.Text,
		Profile:             inv.AuthorProfile,
		Style:               style,
		TrendKeywords:       keywords,
		Mode:                inv.Mode.OrDefault(),
		RevisionInstruction: inv.RevisionInstruction,
	})
	if err != nil {
		var genErr *generation.Error
		if errors.As(err, &genErr) {
			out.Attempts = genErr.Attempts
		}
		r.opts.Metrics.observeAttempts(out.Attempts, false)
		log.WithError(err).WithField("attempts", out.Attempts).Error("Generation failed")
		return r.fail(ctx, out, types.StateFailed, err)
	}
	out.Attempts = result.Attempts
	r.opts.Metrics.observeAttempts(result.Attempts, true)

	// CORRECTING_SCORING
	r.transition(ctx, out, types.StateScoring, fmt.Sprintf("Correcting and scoring %d drafts", len(result.Drafts)), nil)
	out.Drafts = make([]types.ValidatedDraft, 0, len(result.Drafts))
	corrector := correction.NewCorrector(style)
	for _, draft := range result.Drafts {
		fixed := corrector.Correct(draft.Text)
		validated := r.scorer.Score(ctx, draft, fixed, keywords)
		out.Drafts = append(out.Drafts, validated)
		log.WithFields(logging.Fields{
			"variant":      validated.Type,
			"total_score":  validated.TotalScore,
			"char_count":   validated.CharCount,
			"has_blocking": validated.HasBlockingIssue,
		}).Debug("Draft scored")
	}

	// GATING
	r.transition(ctx, out, types.StateGating, "Applying quality gate", out.Drafts)
	decision := gate.Apply(out.Drafts, r.threshold)
	r.opts.Metrics.observeGate(decision.Accepted, decision.Rejected)

	if decision.AllRejected {
		log.WithField("threshold", r.threshold).Info("All drafts scored below threshold")
		r.transition(ctx, out, types.StateAllRejected, "All drafts rejected", nil)
		r.finish(out)
		return out, nil
	}

	out.Accepted = decision.Accepted
	notification := gate.Notification(inv, decision.Accepted, keywords, r.opts.NotifyKeywordLimit)
	if err := r.deps.Notifier.Notify(ctx, notification); err != nil {
		// GATING is not terminal: the caller may retry delivery by re-enqueueing
		log.WithError(err).Error("Notification failed")
		return r.fail(ctx, out, types.StateGating, fmt.Errorf("notify: %w", err))
	}

	log.WithField("accepted", len(decision.Accepted)).Info("Notification sent")
	r.transition(ctx, out, types.StateNotified, fmt.Sprintf("Notified with %d drafts", len(decision.Accepted)), decision.Accepted)
	r.finish(out)
	return out, nil
}

func (r *Runner) fail(ctx context.Context, out *Outcome, state types.State, cause error) (*Outcome, error) {
	out.Err = cause
	r.transition(ctx, out, state, cause.Error(), nil)
	r.finish(out)
	return out, &InvocationError{SourceID: out.Invocation.SourceID, State: state, Cause: cause}
}

func (r *Runner) finish(out *Outcome) {
	r.opts.Metrics.observeOutcome(out.State, out.UpdatedAt.Sub(out.StartedAt).Seconds())
}

// transition moves to state, records it, and emits progress
func (r *Runner) transition(ctx context.Context, out *Outcome, state types.State, message string, content any) {
	out.State = state
	out.UpdatedAt = time.Now()

	if r.deps.Recorder != nil {
		if err := r.deps.Recorder.SaveInvocation(ctx, out); err != nil {
			r.logger.WithError(err).WithFields(logging.Fields{
				"source_id": out.Invocation.SourceID,
				"state":     string(state),
			}).Warn("Failed to record invocation state")
		}
	}

	event := ProgressEvent{
		RunID:    out.RunID.String(),
		SourceID: out.Invocation.SourceID,
		State:    state,
		Message:  message,
		Content:  content,
	}
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(event)
	}
	if cb := progressFrom(ctx); cb != nil {
		cb(event)
	}
}

// trendKeywords fetches keywords once; a failing source degrades to none
func (r *Runner) trendKeywords(ctx context.Context, log logging.Entry) []string {
	if r.deps.Keywords == nil {
		return nil
	}
	keywords, err := r.deps.Keywords.TrendKeywords(ctx)
	if err != nil {
		log.WithError(err).Warn("Trend keywords unavailable, continuing without")
		return nil
	}
	return keywords
}

// style fetches the author's style; a failing source degrades to the default
func (r *Runner) style(ctx context.Context, author string, log logging.Entry) types.StyleGuidelines {
	if r.deps.Styles == nil {
		return correction.DefaultStyle()
	}
	style, err := r.deps.Styles.Style(ctx, author)
	if err != nil {
		log.WithError(err).Warn("Style unavailable, using default style")
		return correction.DefaultStyle()
	}
	return style
}
