package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures the provisioning schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:ltigate.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/ltigate?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  eid TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL DEFAULT '',
  user_type TEXT NOT NULL DEFAULT 'registered',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sites (
  id TEXT PRIMARY KEY,
  site_type TEXT NOT NULL,                  -- course | project
  title TEXT NOT NULL DEFAULT '',
  short_desc TEXT NOT NULL DEFAULT '',
  joinable INTEGER NOT NULL DEFAULT 0,
  published INTEGER NOT NULL DEFAULT 1,
  maintain_role TEXT NOT NULL DEFAULT '',
  joiner_role TEXT NOT NULL DEFAULT '',
  lti_context_id TEXT NOT NULL DEFAULT '',  -- original external context_id
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS site_roles (
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  role_id TEXT NOT NULL,
  PRIMARY KEY (site_id, role_id)
);

CREATE TABLE IF NOT EXISTS site_members (
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  provided INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (site_id, user_id)
);

CREATE TABLE IF NOT EXISTS site_pages (
  id TEXT PRIMARY KEY,
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS placements (
  id TEXT PRIMARY KEY,
  page_id TEXT NOT NULL REFERENCES site_pages(id) ON DELETE CASCADE,
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  tool_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  config_json TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_placements_site_tool ON placements(site_id, tool_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  eid TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL DEFAULT '',
  user_type TEXT NOT NULL DEFAULT 'registered',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sites (
  id TEXT PRIMARY KEY,
  site_type TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  short_desc TEXT NOT NULL DEFAULT '',
  joinable BOOLEAN NOT NULL DEFAULT FALSE,
  published BOOLEAN NOT NULL DEFAULT TRUE,
  maintain_role TEXT NOT NULL DEFAULT '',
  joiner_role TEXT NOT NULL DEFAULT '',
  lti_context_id TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS site_roles (
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  role_id TEXT NOT NULL,
  PRIMARY KEY (site_id, role_id)
);

CREATE TABLE IF NOT EXISTS site_members (
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role_id TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  provided BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (site_id, user_id)
);

CREATE TABLE IF NOT EXISTS site_pages (
  id TEXT PRIMARY KEY,
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS placements (
  id TEXT PRIMARY KEY,
  page_id TEXT NOT NULL REFERENCES site_pages(id) ON DELETE CASCADE,
  site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  tool_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  config_json TEXT NOT NULL DEFAULT '{}',
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_placements_site_tool ON placements(site_id, tool_id);
`
