package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name       string
	migrations []migration

	// classify turns a driver error into a store code and message.
	classify func(err error) (code, message string)
}

// SQLClient implements Client on top of a database/sql driver via sqlx.
type SQLClient struct {
	db      *sqlx.DB
	dialect dialect
}

// From returns the accessor for table.
func (c *SQLClient) From(table string) Table {
	return &sqlTable{db: c.db, dialect: c.dialect, name: table}
}

// Close closes the underlying database connection.
func (c *SQLClient) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for maintenance tasks and tests.
func (c *SQLClient) DB() *sqlx.DB {
	return c.db
}

// runMigrations reads the current schema version and applies any
// outstanding migrations in order.
func (c *SQLClient) runMigrations(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaVersionDDL); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	err := c.db.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range c.dialect.migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		log.WithFields(log.Fields{
			"dialect": c.dialect.name,
			"version": m.version,
		}).Info("applied schema migration")
	}

	return nil
}

// sqlTable is the Table implementation for SQL backends.
type sqlTable struct {
	db      *sqlx.DB
	dialect dialect
	name    string
}

func (t *sqlTable) SelectAll(
	ctx context.Context,
	orderBy string,
	ascending bool,
) ([]Row, error) {
	return t.selectRows(ctx, "select", orderBy, !ascending, 0)
}

func (t *sqlTable) SelectLimited(
	ctx context.Context,
	limit int,
	orderBy string,
	descending bool,
) ([]Row, error) {
	if limit <= 0 {
		return nil, &Error{
			Op: "select", Table: t.name, Code: CodeInvalidInput,
			Message: fmt.Sprintf("limit must be positive, got %d", limit),
		}
	}
	return t.selectRows(ctx, "select", orderBy, descending, limit)
}

func (t *sqlTable) selectRows(
	ctx context.Context,
	op string,
	orderBy string,
	descending bool,
	limit int,
) ([]Row, error) {
	cols, err := t.columns(op)
	if err != nil {
		return nil, err
	}
	if err := checkOrder(op, t.name, orderBy); err != nil {
		return nil, err
	}

	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s",
		strings.Join(cols, ", "), t.name, orderBy, direction)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := t.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, t.wrap(op, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, t.wrap(op, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, t.wrap(op, err)
	}
	return out, nil
}

// Insert creates a row. A UUID is generated when row carries no id, and
// created_at/updated_at default to the current time.
func (t *sqlTable) Insert(ctx context.Context, row Row) (Row, error) {
	const op = "insert"
	cols, err := t.columns(op)
	if err != nil {
		return nil, err
	}

	values := make(Row, len(row)+3)
	for k, v := range row {
		values[k] = v
	}
	if id, _ := values["id"].(string); id == "" {
		values["id"] = uuid.New().String()
	}
	now := time.Now().UTC()
	if _, ok := values["created_at"]; !ok {
		values["created_at"] = now
	}
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = now
	}

	keys, err := checkColumns(op, t.name, values)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = sqlArg(values[k])
	}

	query := t.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.name,
		strings.Join(keys, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(cols, ", "),
	))

	rows, err := t.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, t.wrap(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, t.wrap(op, err)
		}
		return nil, &Error{Op: op, Table: t.name, Message: "insert returned no row"}
	}
	created, err := scanRow(rows)
	if err != nil {
		return nil, t.wrap(op, err)
	}
	return created, nil
}

// Update sets fields on the row with id and bumps updated_at.
func (t *sqlTable) Update(ctx context.Context, id string, fields Row) error {
	const op = "update"
	if _, err := t.columns(op); err != nil {
		return err
	}
	if _, ok := fields["id"]; ok {
		return &Error{Op: op, Table: t.name, Code: CodeInvalidInput, Message: "id cannot be updated"}
	}

	values := make(Row, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()

	keys, err := checkColumns(op, t.name, values)
	if err != nil {
		return err
	}

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, sqlArg(values[k]))
	}
	args = append(args, id)

	query := t.db.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		t.name, strings.Join(sets, ", ")))

	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return t.wrap(op, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		log.WithFields(log.Fields{"table": t.name, "id": id}).Debug("update matched no rows")
	}
	return nil
}

// Delete removes the row with id.
func (t *sqlTable) Delete(ctx context.Context, id string) error {
	const op = "delete"
	if _, err := t.columns(op); err != nil {
		return err
	}

	query := t.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name))
	result, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		return t.wrap(op, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		log.WithFields(log.Fields{"table": t.name, "id": id}).Debug("delete matched no rows")
	}
	return nil
}

// columns returns the known columns of the table, or a relation-missing
// error for a table this client has no schema for.
func (t *sqlTable) columns(op string) ([]string, error) {
	cols := columnsOf(t.name)
	if cols == nil {
		return nil, relationMissing(op, t.name)
	}
	return cols, nil
}

// wrap converts a driver error into a *Error using the dialect's classifier.
func (t *sqlTable) wrap(op string, err error) error {
	code, message := t.dialect.classify(err)
	return &Error{Op: op, Table: t.name, Code: code, Message: message, Err: err}
}

// scanRow scans the current row of rows into a Row.
func scanRow(rows *sqlx.Rows) (Row, error) {
	raw := make(map[string]any)
	if err := rows.MapScan(raw); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}
	row := make(Row, len(raw))
	for k, v := range raw {
		row[k] = normalizeValue(v)
	}
	return row, nil
}

// sqlArg dereferences optional values so drivers only ever see plain
// values or nil.
func sqlArg(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *int:
		if t == nil {
			return nil
		}
		return int64(*t)
	case int:
		return int64(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case time.Time:
		return t.UTC()
	}
	return v
}
