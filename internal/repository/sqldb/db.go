// Package sqldb implements the repository interfaces on database/sql.
//
// Two engines are supported behind one code path:
//
//   - SQLite through modernc.org/sqlite (pure Go, no CGo). The default, and
//     what every test uses via ":memory:".
//   - PostgreSQL through pgx's database/sql driver, selected by a
//     postgres:// or postgresql:// DATABASE_URL.
//
// Queries are written once with "?" placeholders; rebind rewrites them to
// $1, $2, ... for Postgres. Only DDL differs per engine (see schema.go).
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DB wraps a sql.DB connection pool and implements every repository
// interface. It owns the pool: Open creates it, Close releases it.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to databaseURL and brings the schema up to date.
//
// Accepted forms:
//
//	sqlite:///./realestate.db     relative path (SQLAlchemy style)
//	sqlite:////var/lib/app.db     absolute path
//	./realestate.db, :memory:     bare SQLite path
//	postgres://user:pw@host/db    PostgreSQL
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn, d, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	if d == dialectSQLite && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqldb: creating database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: opening %s database: %w", d, err)
	}

	if d == dialectSQLite {
		// One connection: SQLite serialises writers anyway, PRAGMAs are
		// per-connection, and an in-memory database lives only as long as
		// the connection that created it.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqldb: pinging %s database: %w", d, err)
	}

	if d == dialectSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqldb: setting WAL mode: %w", err)
		}
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqldb: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn, dialect: d}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqldb: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect names the engine in use ("sqlite" or "postgres").
func (db *DB) Dialect() string {
	return db.dialect.String()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func parseDatabaseURL(raw string) (driver, dsn string, d dialect, err error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", "", 0, errors.New("sqldb: database URL is empty")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "pgx", raw, dialectPostgres, nil
	case strings.HasPrefix(raw, "sqlite:///"):
		path := strings.TrimPrefix(raw, "sqlite:///")
		if path == "" {
			return "", "", 0, fmt.Errorf("sqldb: %q names no database file", raw)
		}
		return "sqlite", path, dialectSQLite, nil
	case strings.Contains(raw, "://"):
		return "", "", 0, fmt.Errorf("sqldb: unsupported database URL scheme in %q", raw)
	default:
		return "sqlite", raw, dialectSQLite, nil
	}
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.rebind(query), args...)
}

// isUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY violation
// on either engine.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// nullable helpers: nil pointers become SQL NULL.

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
