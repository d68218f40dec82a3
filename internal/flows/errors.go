package flows

import (
	"errors"
	"fmt"
)

// FlowError represents a failure while compiling a preset flow.
//
// Flow errors include:
//   - Missing argument: a required top-level payload is absent
//   - Invalid argument: a present field is semantically wrong
//   - Validation failed: an external validator rejected a step's input
//
// The compiler fails fast and whole: a FlowError means no batch was
// returned, never a partial one.
type FlowError struct {
	// Code identifies the error category.
	Code FlowErrorCode

	// Field names the offending payload field, when known.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying validator or codec error, if any.
	Err error
}

// FlowErrorCode categorizes flow compilation errors.
type FlowErrorCode string

const (
	// ErrCodeMissingArgument indicates an absent required payload or field.
	ErrCodeMissingArgument FlowErrorCode = "MISSING_ARGUMENT"

	// ErrCodeInvalidArgument indicates a present but semantically wrong field.
	ErrCodeInvalidArgument FlowErrorCode = "INVALID_ARGUMENT"

	// ErrCodeValidationFailed indicates an external validator rejected a step.
	ErrCodeValidationFailed FlowErrorCode = "VALIDATION_FAILED"
)

// Error implements the error interface.
func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying validator error for errors.As chains.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// IsMissingArgument returns true for missing-argument flow errors.
// Uses errors.As to handle wrapped errors.
func IsMissingArgument(err error) bool {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeMissingArgument
	}
	return false
}

// IsInvalidArgument returns true for invalid-argument flow errors.
func IsInvalidArgument(err error) bool {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsValidationFailed returns true for delegated validator failures.
func IsValidationFailed(err error) bool {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeValidationFailed
	}
	return false
}

// newMissingArgument creates a FlowError for an absent payload or field.
func newMissingArgument(field string) *FlowError {
	return &FlowError{Code: ErrCodeMissingArgument, Field: field, Message: "required argument is missing"}
}

// newInvalidArgument creates a FlowError for a semantically wrong field.
func newInvalidArgument(field, message string) *FlowError {
	return &FlowError{Code: ErrCodeInvalidArgument, Field: field, Message: message}
}

// wrapValidation wraps a validator's typed error, preserving it unchanged
// for callers that inspect the cause.
func wrapValidation(step string, err error) *FlowError {
	return &FlowError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validator rejected %s", step),
		Err:     err,
	}
}
