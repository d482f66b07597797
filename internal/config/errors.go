package config

import (
	"errors"
	"fmt"
)

// ErrValidationFailed indicates a setting value is out of range or
// malformed. Every ValidationError matches it through errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError describes a validation failure for one setting.
type ValidationError struct {
	// Setting is the TOML path of the failing setting.
	Setting string

	// Message describes the constraint that was violated.
	Message string

	// Value is the rejected value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Setting, e.Message, e.Value)
}

// Is implements error matching against ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
