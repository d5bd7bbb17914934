package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var postgresDialect = dialect{
	name:       "postgres",
	migrations: postgresMigrations,
	classify:   classifyPostgres,
}

// NewPostgresStore connects to a PostgreSQL server using dsn. When migrate
// is false the schema is used as found, so a missing goals table surfaces
// as a relation-missing error rather than being created.
func NewPostgresStore(ctx context.Context, dsn string, migrate bool) (*SQLClient, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	c := &SQLClient{db: db, dialect: postgresDialect}
	if migrate {
		if err := c.runMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return c, nil
}

// classifyPostgres carries the server's SQLSTATE through unchanged.
func classifyPostgres(err error) (string, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message
	}
	return "", err.Error()
}
