package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

func (s *Store) CreateSystem(ctx context.Context, path, name, description string) (System, error) {
	if err := validatePath(path, "path"); err != nil {
		return System{}, err
	}
	if err := validateName(name, "name"); err != nil {
		return System{}, err
	}

	now := time.Now().UTC()
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return insertSystem(ctx, tx, System{
			Path:        path,
			Name:        name,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return System{}, err
	}
	return System{Path: path, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}, nil
}

func insertSystem(ctx context.Context, tx *sql.Tx, sys System) error {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems WHERE path = ?`, sys.Path).Scan(&exists); err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check system existence")
	}
	if exists > 0 {
		return cctxerr.Newf(cctxerr.CodeConflict, "system %q already registered", sys.Path)
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO systems (path, name, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		sys.Path, sys.Name, sys.Description, formatTime(sys.CreatedAt), formatTime(sys.UpdatedAt))
	if err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert system")
	}
	return nil
}

func (s *Store) GetSystem(ctx context.Context, path string) (System, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT path, name, COALESCE(description, ''), created_at, updated_at
FROM systems WHERE path = ?`, path)
	return scanSystem(row)
}

func scanSystem(row *sql.Row) (System, error) {
	var sys System
	var created, updated string
	err := row.Scan(&sys.Path, &sys.Name, &sys.Description, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return System{}, cctxerr.Newf(cctxerr.CodeNotFound, "system not registered")
	}
	if err != nil {
		return System{}, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan system")
	}
	sys.CreatedAt = parseTime(created)
	sys.UpdatedAt = parseTime(updated)
	return sys, nil
}

func (s *Store) ListSystems(ctx context.Context) ([]System, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT path, name, COALESCE(description, ''), created_at, updated_at
FROM systems ORDER BY path`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "list systems")
	}
	defer rows.Close()

	var systems []System
	for rows.Next() {
		var sys System
		var created, updated string
		if err := rows.Scan(&sys.Path, &sys.Name, &sys.Description, &created, &updated); err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan system row")
		}
		sys.CreatedAt = parseTime(created)
		sys.UpdatedAt = parseTime(updated)
		systems = append(systems, sys)
	}
	return systems, rows.Err()
}

func (s *Store) UpdateSystem(ctx context.Context, path, name, description string) error {
	if name == "" && description == "" {
		return nil
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE systems SET
  name = CASE WHEN ? != '' THEN ? ELSE name END,
  description = CASE WHEN ? != '' THEN ? ELSE description END,
  updated_at = ?
WHERE path = ?`,
			name, name, description, description, formatTime(time.Now()), path)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "update system")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "system %q not registered", path)
		}
		return nil
	})
}

// DeleteSystem removes the system row. Dependency edges and ADR links
// cascade via foreign keys.
func (s *Store) DeleteSystem(ctx context.Context, path string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM systems WHERE path = ?`, path)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "delete system")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "system %q not registered", path)
		}
		return nil
	})
}

// AddDependency inserts the edge system -> dependsOn. Both endpoints must
// exist and self-loops are rejected before the insert is attempted.
func (s *Store) AddDependency(ctx context.Context, systemPath, dependsOn string) error {
	if systemPath == dependsOn {
		return cctxerr.Newf(cctxerr.CodeValidationError, "system %q cannot depend on itself", systemPath)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, p := range []string{systemPath, dependsOn} {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems WHERE path = ?`, p).Scan(&exists); err != nil {
				return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check dependency endpoint")
			}
			if exists == 0 {
				return cctxerr.Newf(cctxerr.CodeNotFound, "dependency endpoint %q not registered", p)
			}
		}
		_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO system_dependencies (system_path, depends_on) VALUES (?, ?)`,
			systemPath, dependsOn)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert dependency")
		}
		return nil
	})
}

func (s *Store) RemoveDependency(ctx context.Context, systemPath, dependsOn string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
DELETE FROM system_dependencies WHERE system_path = ? AND depends_on = ?`,
			systemPath, dependsOn)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "remove dependency")
		}
		return nil
	})
}

func (s *Store) ListDependencies(ctx context.Context) ([]Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT system_path, depends_on FROM system_dependencies
ORDER BY system_path, depends_on`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "list dependencies")
	}
	defer rows.Close()

	var deps []Dependency
	for rows.Next() {
		var d Dependency
		if err := rows.Scan(&d.SystemPath, &d.DependsOn); err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan dependency row")
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}
