package store

import (
	"context"
	"fmt"
	"sort"
)

// Table names used by the board.
const (
	TableTasks = "tasks"
	TableGoals = "goals"
)

// Row is a single record keyed by column name. Values are plain Go values
// (string, int64, float64, bool, time.Time) or nil for SQL NULL.
type Row map[string]any

// Table is the set of operations the store offers on one named table.
// Every call is a single independent round trip: there are no
// transactions, batching, or retries.
type Table interface {
	// SelectAll returns every row ordered by orderBy.
	SelectAll(ctx context.Context, orderBy string, ascending bool) ([]Row, error)

	// SelectLimited returns at most limit rows ordered by orderBy.
	SelectLimited(ctx context.Context, limit int, orderBy string, descending bool) ([]Row, error)

	// Insert creates a row and returns it as stored, including the
	// store-assigned id and timestamps.
	Insert(ctx context.Context, row Row) (Row, error)

	// Update sets fields on the row with the given id. Updating an id that
	// does not exist is not an error.
	Update(ctx context.Context, id string, fields Row) error

	// Delete removes the row with the given id. Deleting an id that does
	// not exist is not an error.
	Delete(ctx context.Context, id string) error
}

// Client hands out table-scoped accessors for one backend.
type Client interface {
	From(table string) Table
	Close() error
}

// schema lists the columns each known table exposes. Identifiers coming
// from callers are checked against it before they reach a query.
var schema = map[string][]string{
	TableTasks: {
		"id", "title", "description", "deadline", "assignee",
		"column_id", "created_at", "updated_at",
	},
	TableGoals: {
		"id", "target_traffic", "target_conversion",
		"created_at", "updated_at",
	},
}

// columnsOf returns the column list for table, or nil if unknown.
func columnsOf(table string) []string {
	return schema[table]
}

func hasColumn(table, column string) bool {
	for _, c := range schema[table] {
		if c == column {
			return true
		}
	}
	return false
}

// checkColumns rejects any key of row that is not a column of table.
// It returns the keys sorted so generated SQL is deterministic.
func checkColumns(op, table string, row Row) ([]string, error) {
	if columnsOf(table) == nil {
		return nil, relationMissing(op, table)
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		if !hasColumn(table, k) {
			return nil, &Error{
				Op:      op,
				Table:   table,
				Code:    CodeUndefinedColumn,
				Message: fmt.Sprintf("column %q of relation %q does not exist", k, table),
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// checkOrder validates an ORDER BY column.
func checkOrder(op, table, orderBy string) error {
	if columnsOf(table) == nil {
		return relationMissing(op, table)
	}
	if hasColumn(table, orderBy) {
		return nil
	}
	return &Error{
		Op:      op,
		Table:   table,
		Code:    CodeUndefinedColumn,
		Message: fmt.Sprintf("column %q of relation %q does not exist", orderBy, table),
	}
}

// normalizeValue converts driver-specific representations into the plain
// values documented on Row.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	}
	return v
}

func relationMissing(op, table string) *Error {
	return &Error{
		Op:      op,
		Table:   table,
		Code:    CodeRelationMissing,
		Message: fmt.Sprintf("relation %q does not exist", table),
	}
}
