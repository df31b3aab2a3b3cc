package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("short url not found")
	ErrAliasConflict  = errors.New("custom alias already exists")
	ErrCreationFailed = errors.New("creation failed")
)

// ValidationError reports a required field that is missing or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
