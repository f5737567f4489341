package repository

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrLeadNotFound is returned when no lead row matches.
	ErrLeadNotFound = errors.New("repository: lead not found")
	// ErrAssigneeNotFound is returned when assigned_to references a missing user.
	ErrAssigneeNotFound = errors.New("repository: assignee not found")

	ErrBuildQuery = errors.New("repository: failed to build query")
	ErrExecQuery  = errors.New("repository: failed to execute query")
	ErrScanRow    = errors.New("repository: failed to scan row")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
