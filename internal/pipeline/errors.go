package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/quote-repost/internal/types"
)

// ErrInvalidInvocation is returned before any state is recorded when an
// invocation is missing required fields
var ErrInvalidInvocation = errors.New("invalid invocation")

// InvocationError reports why an invocation did not reach a success state.
// State is the last state reached, so callers can decide whether to re-enqueue.
type InvocationError struct {
	SourceID string
	State    types.State
	Cause    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation %s failed in state %s: %v", e.SourceID, e.State, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}
