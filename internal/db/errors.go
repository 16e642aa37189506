package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// ErrNotFound is returned by writes that target a row that does not exist.
var ErrNotFound = errors.New("not found")

// DuplicateError is returned when an insert hits a unique constraint.
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// VersionConflictError is returned when a compare-and-set write sees a
// different version than the caller expected.
type VersionConflictError struct {
	Key      string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s was modified: expected version %d, found %d", e.Key, e.Expected, e.Actual)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
