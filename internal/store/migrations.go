package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// schemaVersionDDL is applied before any migration so the current version
// can always be read.
const schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);`

// sqliteMigrations is the ordered list of schema migrations for SQLite.
// Each migration's version must be sequential starting from 1.
var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT DEFAULT '',
	deadline    DATETIME,
	assignee    TEXT,
	column_id   TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_column_id ON tasks(column_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS goals (
	id                TEXT PRIMARY KEY,
	target_traffic    INTEGER,
	target_conversion INTEGER,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_goals_created_at ON goals(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// postgresMigrations mirrors sqliteMigrations for PostgreSQL.
var postgresMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT DEFAULT '',
	deadline    TIMESTAMPTZ,
	assignee    TEXT,
	column_id   TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_column_id ON tasks(column_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS goals (
	id                TEXT PRIMARY KEY,
	target_traffic    INTEGER,
	target_conversion INTEGER,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_goals_created_at ON goals(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
