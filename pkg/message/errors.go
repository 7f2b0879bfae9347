package message

import (
	"errors"
	"fmt"
)

// ValidationError reports a field that fails a document invariant.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// CapacityError is returned when an add would exceed a component limit.
// The target collection is left unchanged.
type CapacityError struct {
	Container string
	Limit     int
	Reason    string
}

func (e *CapacityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s is full (limit %d): %s", e.Container, e.Limit, e.Reason)
	}
	return fmt.Sprintf("%s is full (limit %d)", e.Container, e.Limit)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCapacity reports whether err wraps a *CapacityError.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

func prefixField(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Field: prefix + "." + ve.Field, Value: ve.Value, Message: ve.Message}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
