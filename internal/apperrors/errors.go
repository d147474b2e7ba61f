package apperrors

import (
	"errors"
	"fmt"
)

// Error is a launchpad error carrying a stable code.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable detail
	Metadata map[string]string // Additional context (launch id, settlement id, ...)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized            = &Error{Code: CodeUnauthorized}
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrInvalidState            = &Error{Code: CodeInvalidState}
	ErrInvalidInput            = &Error{Code: CodeInvalidInput}
	ErrLimitExceeded           = &Error{Code: CodeLimitExceeded}
	ErrWhitelistRequired       = &Error{Code: CodeWhitelistRequired}
	ErrWhitelistLocked         = &Error{Code: CodeWhitelistLocked}
	ErrAlreadyClaimed          = &Error{Code: CodeAlreadyClaimed}
	ErrNothingToClaim          = &Error{Code: CodeNothingToClaim}
	ErrNothingToRefund         = &Error{Code: CodeNothingToRefund}
	ErrAlreadyWithdrawn        = &Error{Code: CodeAlreadyWithdrawn}
	ErrReentrancyGuard         = &Error{Code: CodeReentrancyGuard}
	ErrCrossContractCallFailed = &Error{Code: CodeCrossContractCallFailed}
)

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata creates an error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// GetCode extracts the code from err, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}
