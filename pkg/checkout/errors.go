package checkout

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrMissingUserID = errors.New("userId is required")
	ErrInvalidUserID = errors.New("invalid userId format")
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrRateLimited   = errors.New("too many payment requests")
)

// ValidationError reports the first invalid field of a request. It matches
// both ErrValidation and the field specific sentinel.
type ValidationError struct {
	Field   string
	Message string
	err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.err} }

// Code is a stable machine readable identifier for API clients.
func (e *ValidationError) Code() string {
	switch {
	case errors.Is(e.err, ErrMissingUserID):
		return "MISSING_USER_ID"
	case errors.Is(e.err, ErrInvalidUserID):
		return "INVALID_USER_ID"
	case errors.Is(e.err, ErrInvalidPlan):
		return "INVALID_PLAN"
	case errors.Is(e.err, ErrInvalidEmail):
		return "INVALID_EMAIL"
	default:
		return "VALIDATION_FAILED"
	}
}

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }
