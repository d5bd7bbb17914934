package store

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes follow PostgreSQL SQLSTATE values so that every backend
// reports the same condition with the same code.
const (
	// CodeRelationMissing means the referenced table does not exist.
	CodeRelationMissing = "42P01"

	// CodeUndefinedColumn means a column name was not recognized.
	CodeUndefinedColumn = "42703"

	// CodeInvalidInput covers malformed arguments rejected before any
	// round trip (e.g., a non-positive limit).
	CodeInvalidInput = "22023"
)

// Error is the structured failure returned by every Table method.
type Error struct {
	// Op is the table operation that failed (select, insert, ...).
	Op string

	// Table is the table the operation targeted.
	Table string

	// Code is a machine-readable SQLSTATE-style code. Empty when the
	// backend did not supply one (e.g., a network failure).
	Code string

	// Message is the backend's human-readable description.
	Message string

	// Err is the underlying driver or transport error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (code %s)", e.Op, e.Table, msg, e.Code)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Table, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRelationMissing reports whether err means the target table does not
// exist in the store.
func IsRelationMissing(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == CodeRelationMissing ||
		(strings.Contains(se.Message, "does not exist") && se.Code != CodeUndefinedColumn)
}

// Code returns the store error code carried by err, or "" if err is not a
// store error.
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
