// Package errors defines the structured error type shared by the config
// registry and the metrics client. Each error carries a Code naming its
// kind so callers can branch on it without string matching.
package errors

import (
	"errors"
)

// Error codes. CONFIG errors are raised while loading server files; the
// rest classify a single fetch attempt.
const (
	ErrConfig     = "CONFIG"
	ErrHTTP       = "HTTP"
	ErrConnection = "CONNECTION"
	ErrTimeout    = "TIMEOUT"
	ErrProtocol   = "PROTOCOL"
	ErrAPI        = "API"
)

// Error is a classified error with a user-facing message, an optional
// suggestion, and the underlying cause.
//
// The rendered form is a single line so it fits a status bar:
//
//	HTTP 401 Unauthorized. Check URL/Token.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Suggestion == "" {
		return e.Message
	}
	return e.Message + ". " + e.Suggestion
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first structured Error in err's chain,
// or "" when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
