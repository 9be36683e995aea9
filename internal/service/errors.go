package service

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is returned by the session service. Code is a stable machine
// readable identifier, Message is safe to show to clients and Err is the
// underlying cause, if any.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code. Conflicts only reach
// clients when internal retries are exhausted, so they surface as 500.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error codes returned to clients.
const (
	CodeUserNotFound        = "user_not_found"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeMissingRefreshToken = "missing_refresh_token"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeRefreshTokenExpired = "refresh_token_expired"
	CodeUserInactive        = "user_inactive"
	CodeInternal            = "internal_error"
)

func newError(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func internal(err error) *Error {
	return newError(KindInternal, CodeInternal, "internal server error", err)
}

// AsError unwraps err into an *Error. Anything else is reported as internal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal(err)
}
