package service

import "errors"

// Error kinds. Handlers map them to HTTP statuses.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is match the kind.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrEmailInUse         = newError(ErrConflict, "User already exists with this email")
	ErrInvalidCredentials = newError(ErrUnauthorized, "Invalid credentials")
	ErrUserNotFound       = newError(ErrNotFound, "User not found")
	ErrNothingToUpdate    = newError(ErrBadRequest, "Nothing to update")
)
