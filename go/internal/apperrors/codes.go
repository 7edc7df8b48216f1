package apperrors

import "net/http"

// Code is a machine-readable error code reported to clients.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeExpired         Code = "EXPIRED"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps a code to the status used by the REST handlers.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClientFault reports whether the code describes a caller mistake rather
// than a server-side failure.
func (c Code) ClientFault() bool {
	switch c {
	case CodeNotFound, CodeUnauthorized, CodeInvalidState, CodeExpired, CodeConflict, CodeInvalidArgument:
		return true
	}
	return false
}
