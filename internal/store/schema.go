package store

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS systems (
  path TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS system_dependencies (
  system_path TEXT NOT NULL REFERENCES systems(path) ON DELETE CASCADE,
  depends_on TEXT NOT NULL REFERENCES systems(path) ON DELETE CASCADE,
  PRIMARY KEY (system_path, depends_on),
  CHECK (system_path != depends_on)
);
CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON system_dependencies(depends_on);

CREATE TABLE IF NOT EXISTS adrs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('proposed', 'accepted', 'deprecated', 'superseded')),
  file_path TEXT NOT NULL UNIQUE,
  context TEXT,
  decision TEXT,
  consequences TEXT,
  supersedes TEXT,
  superseded_by TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS adr_systems (
  adr_id TEXT NOT NULL REFERENCES adrs(id) ON DELETE CASCADE,
  system_path TEXT NOT NULL REFERENCES systems(path) ON DELETE CASCADE,
  PRIMARY KEY (adr_id, system_path)
);
CREATE INDEX IF NOT EXISTS idx_adr_systems_system ON adr_systems(system_path);

CREATE TABLE IF NOT EXISTS adr_tags (
  adr_id TEXT NOT NULL REFERENCES adrs(id) ON DELETE CASCADE,
  tag TEXT NOT NULL,
  PRIMARY KEY (adr_id, tag)
);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
