package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrUserNotFound is returned when no user row matches.
	ErrUserNotFound = errors.New("repository: user not found")
	// ErrEmailTaken is returned when the email unique index rejects a write.
	ErrEmailTaken = errors.New("repository: email already registered")

	ErrBuildQuery = errors.New("repository: failed to build query")
	ErrExecQuery  = errors.New("repository: failed to execute query")
	ErrScanRow    = errors.New("repository: failed to scan row")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
