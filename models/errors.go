package models

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks client-caused input failures.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced connection or message that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a live connection record is already registered.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStaleTarget is returned by a delivery transport when the target connection is gone.
	ErrStaleTarget = errors.New("stale target")
	// ErrIntegration marks a failure of a downstream store, queue or transport.
	ErrIntegration = errors.New("integration error")
	// ErrUnsupportedAction is returned for an unknown (eventType, routeKey) combination.
	ErrUnsupportedAction = errors.New("unsupported action")
	// ErrMalformedPayload marks a delivery task that can never be processed.
	ErrMalformedPayload = errors.New("malformed payload")
)

// ValidationError carries the individual issues found in a client payload.
type ValidationError struct {
	Issues []string
}

func NewValidationError(issues ...string) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IntegrationError is the only downstream failure shape visible outside the relay.
// Message is safe to show to a client; Err keeps the cause for logs and errors.Is.
type IntegrationError struct {
	Message string
	Err     error
}

func NewIntegrationError(message string, err error) *IntegrationError {
	return &IntegrationError{Message: message, Err: err}
}

func (e *IntegrationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *IntegrationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIntegration}
	}
	return []error{ErrIntegration, e.Err}
}
