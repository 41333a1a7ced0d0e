// Package apperr defines the error kinds shared by the session components:
// local validation failures and the empty-review condition. Remote failures
// live in package remote.
package apperr

import (
	"errors"
	"fmt"
)

// ErrEmptyState signals that there is nothing to show, e.g. a review without
// cards. It is a condition for the presentation layer, not a failure.
var ErrEmptyState = errors.New("no flashcards to review")

// ValidationError is a local, pre-network rejection of caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Validation returns a new *ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
