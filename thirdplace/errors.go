package thirdplace

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Caller errors, surfaced synchronously from public entry points.
	ErrorInvalidArgument
	ErrorUnknownEventType

	// Pipeline errors
	ErrorMalformedFeed
	ErrorHandler

	// Client-side errors
	ErrorNotConfigured
	ErrorTransport
	ErrorInvalidConfig
	ErrorAlreadyRunning
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorInvalidArgument:
		return "invalid_argument"
	case ErrorUnknownEventType:
		return "unknown_event_type"
	case ErrorMalformedFeed:
		return "malformed_feed"
	case ErrorHandler:
		return "handler_error"
	case ErrorNotConfigured:
		return "not_configured"
	case ErrorTransport:
		return "transport_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorAlreadyRunning:
		return "already_running"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// Error is a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrInvalidArgument  = NewError(ErrorInvalidArgument, "invalid argument")
	ErrUnknownEventType = NewError(ErrorUnknownEventType, "invalid event type")
	ErrMalformedFeed    = NewError(ErrorMalformedFeed, "malformed broadcast queue")
	ErrHandler          = NewError(ErrorHandler, "handler failed")
	ErrNotConfigured    = NewError(ErrorNotConfigured, "not configured")
	ErrTransport        = NewError(ErrorTransport, "transport failed")
	ErrInvalidConfig    = NewError(ErrorInvalidConfig, "invalid config")
	ErrAlreadyRunning   = NewError(ErrorAlreadyRunning, "already running")
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with an Error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// CodeOf extracts the ErrorCode from err, or ErrorUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorUnknown
	}
	return e.Code
}

// IsFeedError reports whether err came from reading or parsing the broadcast queue.
func IsFeedError(err error) bool {
	return err != nil && CodeOf(err) == ErrorMalformedFeed
}

// IsCallerError reports whether err was caused by a bad argument to a public entry point.
func IsCallerError(err error) bool {
	if err == nil {
		return false
	}
	c := CodeOf(err)
	return c == ErrorInvalidArgument || c == ErrorUnknownEventType
}
