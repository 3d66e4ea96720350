package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates an optional collaborator the request needs is not configured
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not available on this server", e.Feature)
}

// ErrPublish wraps a failure from the publishing collaborator
type ErrPublish struct {
	Cause error
}

func (e *ErrPublish) Error() string {
	return fmt.Sprintf("failed to publish draft: %v", e.Cause)
}

func (e *ErrPublish) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		unavailable *ErrUnavailable
		publish     *ErrPublish
		invocation  *pipeline.InvocationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.Is(err, pipeline.ErrInvalidInvocation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &publish), errors.As(err, &invocation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
