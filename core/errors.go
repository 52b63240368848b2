// Package core defines the shared vocabulary of the statement layer: the
// canonical operation descriptors produced by the builders, the transport
// Protocol that executes them, the Result value transports return, and the
// error taxonomy every component reports through.
package core

import (
	"errors"
	"fmt"
)

// ErrNotSupported marks a syntactically valid request for a feature the
// statement layer intentionally refuses. Use errors.Is to detect it.
var ErrNotSupported = errors.New("operation not supported")

// ValidationError reports malformed input caught locally, before anything is
// sent to the transport.
type ValidationError struct {
	Op      string // the builder operation that detected the problem
	Message string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotSupportedError wraps ErrNotSupported with a feature-specific message.
func NotSupportedError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotSupported)
}
