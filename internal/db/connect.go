package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps common aliases to a Driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "pg", "pgsql", "pgx":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported driver: %s", s)
}

// Open opens a DB, tunes the pool and ensures the normative schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:norms.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/norms?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := EnsureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the normative tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: schema: %w", err)
	}
	return nil
}

// tunePool keeps SQLite to a single connection (single writer) and uses
// server defaults otherwise.
func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 20
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		maxOpen = 1
		maxIdle = 1
		connLife = 0
		idleLife = 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS norm_tables (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  instrument TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  dimension TEXT NOT NULL DEFAULT '',
  criterion_value TEXT NOT NULL DEFAULT '',
  subscale TEXT NOT NULL DEFAULT '',
  is_generic INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_norm_tables_lookup
  ON norm_tables (instrument, active, dimension, criterion_value);

CREATE TABLE IF NOT EXISTS norm_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  table_id INTEGER NOT NULL REFERENCES norm_tables(id) ON DELETE CASCADE,
  subscale TEXT NOT NULL DEFAULT '',
  lower_bound REAL NOT NULL,
  upper_bound REAL NOT NULL,
  percentile INTEGER NOT NULL CHECK (percentile >= 0),
  classification TEXT NOT NULL,
  criterion_value TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_norm_rows_table ON norm_rows (table_id, subscale);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS norm_tables (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  instrument TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  dimension TEXT NOT NULL DEFAULT '',
  criterion_value TEXT NOT NULL DEFAULT '',
  subscale TEXT NOT NULL DEFAULT '',
  is_generic BOOLEAN NOT NULL DEFAULT FALSE,
  description TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_norm_tables_lookup
  ON norm_tables (instrument, active, dimension, criterion_value);

CREATE TABLE IF NOT EXISTS norm_rows (
  id BIGSERIAL PRIMARY KEY,
  table_id BIGINT NOT NULL REFERENCES norm_tables(id) ON DELETE CASCADE,
  subscale TEXT NOT NULL DEFAULT '',
  lower_bound DOUBLE PRECISION NOT NULL,
  upper_bound DOUBLE PRECISION NOT NULL,
  percentile INTEGER NOT NULL CHECK (percentile >= 0),
  classification TEXT NOT NULL,
  criterion_value TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_norm_rows_table ON norm_rows (table_id, subscale);
`
