package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/quote-repost/internal/types"
)

// BatchResult pairs an invocation's outcome with its error
type BatchResult struct {
	Outcome *Outcome
	Err     error
}

// RunBatch runs invocations concurrently, at most concurrency at a time.
// One invocation failing does not stop the others. Results keep input order.
func (r *Runner) RunBatch(ctx context.Context, invocations []types.Invocation, concurrency int) []BatchResult {
	results := make([]BatchResult, len(invocations))

	g, gCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, inv := range invocations {
		g.Go(func() error {
			outcome, err := r.Run(gCtx, inv)
			results[i] = BatchResult{Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summary counts batch results by final state. Invalid invocations count under "INVALID".
func Summary(results []BatchResult) map[string]int {
	counts := make(map[string]int)
	for _, res := range results {
		if res.Outcome == nil {
			counts["INVALID"]++
			continue
		}
		counts[string(res.Outcome.State)]++
	}
	return counts
}
