package service

import "errors"

// Error kinds. Handlers map them to HTTP statuses.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
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
	ErrLeadNotFound     = newError(ErrNotFound, "Partnership request not found")
	ErrInvalidStatus    = newError(ErrBadRequest, "Invalid status. Allowed values: pending, contacted, in-progress, completed, rejected")
	ErrInvalidPriority  = newError(ErrBadRequest, "Invalid priority. Allowed values: low, medium, high")
	ErrNotesTooLong     = newError(ErrBadRequest, "Notes cannot exceed 500 characters")
	ErrNoValidFields    = newError(ErrBadRequest, "No valid fields to update")
	ErrAssigneeNotFound = newError(ErrBadRequest, "Assigned user not found")
)

// DuplicateError reports a recent submission from the same email.
type DuplicateError struct {
	SubmissionID int64
}

func (e *DuplicateError) Error() string {
	return "A partnership request with this email was already submitted within the last 24 hours"
}

// Unwrap classifies duplicates as conflicts.
func (e *DuplicateError) Unwrap() error { return ErrConflict }
