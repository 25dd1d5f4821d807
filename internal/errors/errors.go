// Package errors holds the error definitions shared by every digest package.
//
// This file provides:
// - Numeric error codes for the CLI exit status and log output
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error codes
// ============================================================================

const (
	CodeUnknown            int32 = 1
	CodeInvalidCompression int32 = 2
	CodeInvalidWeight      int32 = 3
	CodeInvalidValue       int32 = 4
	CodeEmptyDigest        int32 = 5
	CodeDimensionMismatch  int32 = 6
	CodeInvalidQuantile    int32 = 7
	CodeInvalidSnapshot    int32 = 8
	CodeInvalidConfig      int32 = 9
	CodeInternal           int32 = 10
	CodeInvalidInput       int32 = 11
)

// CodeName returns a human-readable name for an error code.
func CodeName(code int32) string {
	switch code {
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidCompression:
		return "InvalidCompression"
	case CodeInvalidWeight:
		return "InvalidWeight"
	case CodeInvalidValue:
		return "InvalidValue"
	case CodeEmptyDigest:
		return "EmptyDigest"
	case CodeDimensionMismatch:
		return "DimensionMismatch"
	case CodeInvalidQuantile:
		return "InvalidQuantile"
	case CodeInvalidSnapshot:
		return "InvalidSnapshot"
	case CodeInvalidConfig:
		return "InvalidConfig"
	case CodeInternal:
		return "Internal"
	case CodeInvalidInput:
		return "InvalidInput"
	default:
		return fmt.Sprintf("Code(%d)", code)
	}
}

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Construction
	ErrInvalidCompression = errors.New("compression must be a positive finite number")

	// Input validation
	ErrInvalidWeight      = errors.New("weight must be a positive finite number")
	ErrInvalidValue       = errors.New("value must be finite")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
	ErrInvalidQuantile    = errors.New("quantile must be within [0, 1]")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingField       = errors.New("missing required field")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnsupportedBackend = errors.New("unsupported estimator backend")
	ErrInvalidInput       = errors.New("malformed input")

	// Query state
	ErrEmptyDigest = errors.New("digest is empty")

	// Internal errors
	ErrInternal   = errors.New("internal error")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsValidation returns true if err was caused by rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidCompression) ||
		errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInvalidQuantile) ||
		errors.Is(err, ErrInvalidSnapshot) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidInput)
}

// ErrorToCode maps a sentinel error to its numeric code.
func ErrorToCode(err error) int32 {
	if err == nil {
		return CodeUnknown
	}

	switch {
	case Is(err, ErrInvalidCompression):
		return CodeInvalidCompression
	case Is(err, ErrInvalidWeight):
		return CodeInvalidWeight
	case Is(err, ErrInvalidValue):
		return CodeInvalidValue
	case Is(err, ErrEmptyDigest):
		return CodeEmptyDigest
	case Is(err, ErrDimensionMismatch):
		return CodeDimensionMismatch
	case Is(err, ErrInvalidQuantile):
		return CodeInvalidQuantile
	case Is(err, ErrInvalidSnapshot):
		return CodeInvalidSnapshot
	case Is(err, ErrInvalidConfig), Is(err, ErrMissingField):
		return CodeInvalidConfig
	case Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewInvalidValue creates an input error for the element at index.
func NewInvalidValue(index int, value float64) error {
	return fmt.Errorf("values[%d] = %v: %w", index, value, ErrInvalidValue)
}

// NewInvalidWeight creates an input error for the weight at index.
func NewInvalidWeight(index int, weight float64) error {
	return fmt.Errorf("weights[%d] = %v: %w", index, weight, ErrInvalidWeight)
}

// NewDimensionMismatch reports two slices whose lengths must agree.
func NewDimensionMismatch(what string, got, want int) error {
	return fmt.Errorf("%s: got %d, want %d: %w", what, got, want, ErrDimensionMismatch)
}

// NewValidation creates a configuration error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap exposes every collected error to errors.Is/As.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
