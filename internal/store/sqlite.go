package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:       "sqlite",
	migrations: sqliteMigrations,
	classify:   classifySQLite,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, enables
// WAL mode and, when migrate is set, runs any pending schema migrations.
func NewSQLiteStore(ctx context.Context, dbPath string, migrate bool) (*SQLClient, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	c := &SQLClient{db: db, dialect: sqliteDialect}
	if migrate {
		if err := c.runMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return c, nil
}

// classifySQLite maps SQLite's "no such table" onto the relation-missing
// code the rest of the application understands.
func classifySQLite(err error) (string, string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return CodeRelationMissing, msg
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
		return CodeUndefinedColumn, msg
	}
	return "", msg
}
