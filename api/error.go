// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import "net/http"

// ParamError describes one invalid request parameter.
type ParamError struct {
	Param   string `json:"param"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// Error is the typed failure every handler step can short-circuit with. The
// terminal writer renders Code/Type/Message into the response envelope; no
// handler formats errors on its own.
type Error struct {
	Code    int
	Type    string
	Message string
	Params  []ParamError
}

func (e *Error) Error() string {
	return e.Type + ": " + e.Message
}

func newError(code int, typ, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Code: code, Type: typ, Message: message}
}

// ErrNotFound is a 404.
func ErrNotFound(message string) *Error {
	return newError(http.StatusNotFound, "not_found", message, "Not found")
}

// ErrServer is a 500. Used for store failures and invariant violations.
func ErrServer(message string) *Error {
	return newError(http.StatusInternalServerError, "server_error", message, "Internal server error")
}

// ErrBadRequest is a generic 400.
func ErrBadRequest(message string) *Error {
	return newError(http.StatusBadRequest, "bad_request", message, "Bad request")
}

// ErrInsufficientParams means required parameters were missing entirely.
func ErrInsufficientParams(message string) *Error {
	return newError(http.StatusBadRequest, "insufficient_params", message, "Insufficient parameters")
}

// ErrNotAuthorized is a 403 for callers that are authenticated but not
// allowed to do this.
func ErrNotAuthorized(message string) *Error {
	return newError(http.StatusForbidden, "not_authorized", message, "Not authorized")
}

// ErrAccessLevelTooLow is rendered as not_authorized; deliberately
// distinguishable from an invalid token.
func ErrAccessLevelTooLow() *Error {
	return newError(http.StatusForbidden, "not_authorized", "", "Requires a higher access level")
}

// ErrInvalidToken covers a missing token, an unknown token and a dangling
// session alike; the guard does not tell the caller which one it was.
func ErrInvalidToken() *Error {
	return newError(http.StatusForbidden, "invalid_token", "", "Invalid API token")
}

// ErrAuthFailed means the api_key/api_secret pair did not match.
func ErrAuthFailed() *Error {
	return newError(http.StatusForbidden, "auth_failed", "", "Authentication failed")
}

// ErrLoginFailed covers both unknown handles and wrong passwords; the type
// is the same for both so handles cannot be enumerated by error type.
func ErrLoginFailed(message string) *Error {
	return newError(http.StatusBadRequest, "login_failed", message, "Login failed")
}

// ErrHandleTaken means the requested handle collides, case-insensitively,
// with an existing one.
func ErrHandleTaken() *Error {
	return newError(http.StatusBadRequest, "handle_taken", "", "That handle has been taken")
}

// ErrParams is a validation failure with one entry per invalid field.
func ErrParams(params ...ParamError) *Error {
	e := newError(http.StatusBadRequest, "param_error", "", "Invalid parameters")
	e.Params = params
	return e
}
