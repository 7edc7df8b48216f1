// Package apperrors defines the domain error taxonomy shared by the voting
// coordinator, the room registry and the gateway.
package apperrors

import "errors"

// Error is a domain error carrying a code that survives wrapping.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

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

// Sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrUnauthorized    = &Error{Code: CodeUnauthorized}
	ErrInvalidState    = &Error{Code: CodeInvalidState}
	ErrExpired         = &Error{Code: CodeExpired}
	ErrConflict        = &Error{Code: CodeConflict}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(message string) *Error        { return New(CodeNotFound, message) }
func Unauthorized(message string) *Error    { return New(CodeUnauthorized, message) }
func InvalidState(message string) *Error    { return New(CodeInvalidState, message) }
func Expired(message string) *Error         { return New(CodeExpired, message) }
func Conflict(message string) *Error        { return New(CodeConflict, message) }
func InvalidArgument(message string) *Error { return New(CodeInvalidArgument, message) }

// CodeOf extracts the first domain code found in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the domain message for err, or a generic one when the
// error did not originate in the domain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
