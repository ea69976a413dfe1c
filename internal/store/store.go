// Package store is the persistent registry of systems, dependency edges,
// ADRs, ADR-system links, and ADR tags. One Store handle is opened per
// invocation and released at invocation end; there is no process-wide state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

const driverName = "sqlite"

type Store struct {
	path string
	db   *sql.DB
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, cctxerr.New(cctxerr.CodeInfrastructure, "store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, cctxerr.Newf(cctxerr.CodeInfrastructure, "store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, fmt.Sprintf("create store directory %q", dir))
		}
	}

	// busy_timeout + WAL reduce lock conflicts with concurrent external writers.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, fmt.Sprintf("open registry %q", cleanPath))
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, fmt.Sprintf("ping registry %q", cleanPath))
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, fmt.Sprintf("initialize registry schema %q", cleanPath))
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// WithTx runs fn inside a transaction that commits fully or rolls back
// fully. No half-written rows are ever observable.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "commit transaction")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func validatePath(path, field string) error {
	if strings.TrimSpace(path) == "" {
		return cctxerr.Newf(cctxerr.CodeValidationError, "%s cannot be empty", field)
	}
	if len(path) > 512 {
		return cctxerr.Newf(cctxerr.CodeValidationError, "%s exceeds maximum length (512)", field)
	}
	if strings.Contains(path, "..") {
		return cctxerr.Newf(cctxerr.CodeValidationError, "path traversal not allowed in %s", field)
	}
	return nil
}

func validateName(name, field string) error {
	if strings.TrimSpace(name) == "" {
		return cctxerr.Newf(cctxerr.CodeValidationError, "%s cannot be empty", field)
	}
	if len(name) > 256 {
		return cctxerr.Newf(cctxerr.CodeValidationError, "%s exceeds maximum length (256)", field)
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case StatusProposed, StatusAccepted, StatusDeprecated, StatusSuperseded:
		return true
	}
	return false
}
