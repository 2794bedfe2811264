package sqldb

import (
	"context"
	"fmt"
)

// Migrations are idempotent: CREATE ... IF NOT EXISTS for tables and
// indexes, addColumnIfNotExists for columns added after the first release.
// Both engines run the same phases with engine-specific DDL.

var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		email           TEXT NOT NULL UNIQUE,
		username        TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		is_active       BOOLEAN NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      INTEGER NOT NULL REFERENCES users(id),
		query_text   TEXT NOT NULL,
		city         TEXT,
		lat          REAL,
		lon          REAL,
		beds         INTEGER,
		baths        INTEGER,
		area         REAL,
		year_built   INTEGER,
		asking_price REAL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id        INTEGER NOT NULL UNIQUE REFERENCES queries(id) ON DELETE CASCADE,
		estimated_price REAL NOT NULL,
		location_score  REAL NOT NULL,
		deal_verdict    TEXT NOT NULL,
		why             TEXT NOT NULL,
		confidence      REAL NOT NULL,
		provenance      TEXT NOT NULL DEFAULT '[]',
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		response_id INTEGER NOT NULL REFERENCES responses(id) ON DELETE CASCADE,
		user_id     INTEGER NOT NULL REFERENCES users(id),
		is_positive BOOLEAN NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		username        TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id),
		query_text   TEXT NOT NULL,
		city         TEXT,
		lat          DOUBLE PRECISION,
		lon          DOUBLE PRECISION,
		beds         INTEGER,
		baths        INTEGER,
		area         DOUBLE PRECISION,
		year_built   INTEGER,
		asking_price DOUBLE PRECISION,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id              BIGSERIAL PRIMARY KEY,
		query_id        BIGINT NOT NULL UNIQUE REFERENCES queries(id) ON DELETE CASCADE,
		estimated_price DOUBLE PRECISION NOT NULL,
		location_score  DOUBLE PRECISION NOT NULL,
		deal_verdict    TEXT NOT NULL,
		why             TEXT NOT NULL,
		confidence      DOUBLE PRECISION NOT NULL,
		provenance      TEXT NOT NULL DEFAULT '[]',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id          BIGSERIAL PRIMARY KEY,
		response_id BIGINT NOT NULL REFERENCES responses(id) ON DELETE CASCADE,
		user_id     BIGINT NOT NULL REFERENCES users(id),
		is_positive BOOLEAN NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Columns added after the first schema. Types are portable between engines.
var addedColumns = []struct{ table, column, definition string }{
	{"users", "github_id", "BIGINT"},
	{"queries", "district", "TEXT"},
	{"queries", "property_type", "TEXT"},
	{"queries", "land_size", "DOUBLE PRECISION"},
}

// Identical on both engines. NULL github_id values never collide.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_user_created ON queries(user_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_feedback_response_user ON feedback(response_id, user_id)`,
}

func (db *DB) migrate(ctx context.Context) error {
	tables := sqliteTables
	if db.dialect == dialectPostgres {
		tables = postgresTables
	}

	for _, stmt := range tables {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	for _, c := range addedColumns {
		if err := db.addColumnIfNotExists(ctx, c.table, c.column, c.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.column, err)
		}
	}

	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}

// addColumnIfNotExists makes ALTER TABLE idempotent. Postgres supports
// IF NOT EXISTS natively; SQLite needs a pragma_table_info lookup first.
func (db *DB) addColumnIfNotExists(ctx context.Context, table, column, definition string) error {
	if db.dialect == dialectPostgres {
		_, err := db.conn.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, table, column, definition,
		))
		return err
	}

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
