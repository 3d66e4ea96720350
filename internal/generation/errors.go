// Package generation produces quote-repost drafts from a source post using an LLM.
package generation

import "fmt"

// ReasonMalformedResponse marks a response that was received but could not be used
const ReasonMalformedResponse = "malformed-response"

// TransportError represents a failure calling the generation service
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("generation transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response that is not a JSON object of the required draft shape
type ParseError struct {
	Reason  string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation parse error (%s): %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation parse error (%s): %s", e.Reason, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Error is returned once every attempt has failed. Cause is the last attempt's error.
type Error struct {
	Attempts int
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
