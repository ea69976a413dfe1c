package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

func (s *Store) CreateADR(ctx context.Context, adr ADR) (ADR, error) {
	if err := validateName(adr.ID, "id"); err != nil {
		return ADR{}, err
	}
	if err := validateName(adr.Title, "title"); err != nil {
		return ADR{}, err
	}
	if err := validatePath(adr.FilePath, "file_path"); err != nil {
		return ADR{}, err
	}
	if !validStatus(adr.Status) {
		return ADR{}, cctxerr.Newf(cctxerr.CodeValidationError, "invalid ADR status %q", adr.Status)
	}

	now := time.Now().UTC()
	adr.CreatedAt = now
	adr.UpdatedAt = now
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return insertADR(ctx, tx, adr)
	})
	if err != nil {
		return ADR{}, err
	}
	return adr, nil
}

func insertADR(ctx context.Context, tx *sql.Tx, adr ADR) error {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM adrs WHERE id = ? OR file_path = ?`,
		adr.ID, adr.FilePath).Scan(&exists); err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check ADR existence")
	}
	if exists > 0 {
		return cctxerr.Newf(cctxerr.CodeConflict, "ADR %q (or its file path) already registered", adr.ID)
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO adrs (id, title, status, file_path, context, decision, consequences,
                  supersedes, superseded_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adr.ID, adr.Title, adr.Status, adr.FilePath,
		adr.Context, adr.Decision, adr.Consequences,
		nullable(adr.Supersedes), nullable(adr.SupersededBy),
		formatTime(adr.CreatedAt), formatTime(adr.UpdatedAt))
	if err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert ADR")
	}
	return nil
}

// CreateADRWithRelations inserts the ADR row plus its system links and tags
// in one transaction. Either everything lands or nothing does.
func (s *Store) CreateADRWithRelations(ctx context.Context, adr ADR, systemPaths, tags []string) (ADR, error) {
	if err := validateName(adr.ID, "id"); err != nil {
		return ADR{}, err
	}
	if err := validateName(adr.Title, "title"); err != nil {
		return ADR{}, err
	}
	if err := validatePath(adr.FilePath, "file_path"); err != nil {
		return ADR{}, err
	}
	if !validStatus(adr.Status) {
		return ADR{}, cctxerr.Newf(cctxerr.CodeValidationError, "invalid ADR status %q", adr.Status)
	}

	now := time.Now().UTC()
	adr.CreatedAt = now
	adr.UpdatedAt = now
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertADR(ctx, tx, adr); err != nil {
			return err
		}
		for _, path := range systemPaths {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems WHERE path = ?`, path).Scan(&exists); err != nil {
				return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check link target")
			}
			if exists == 0 {
				return cctxerr.Newf(cctxerr.CodeNotFound, "link target %q not registered", path)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO adr_systems (adr_id, system_path) VALUES (?, ?)`, adr.ID, path); err != nil {
				return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert ADR link")
			}
		}
		for _, tag := range tags {
			if err := validateName(tag, "tag"); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO adr_tags (adr_id, tag) VALUES (?, ?)`, adr.ID, tag); err != nil {
				return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert ADR tag")
			}
		}
		return nil
	})
	if err != nil {
		return ADR{}, err
	}
	return adr, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const adrColumns = `id, title, status, file_path,
COALESCE(context, ''), COALESCE(decision, ''), COALESCE(consequences, ''),
COALESCE(supersedes, ''), COALESCE(superseded_by, ''), created_at, updated_at`

func scanADR(scan func(dest ...interface{}) error) (ADR, error) {
	var adr ADR
	var created, updated string
	err := scan(&adr.ID, &adr.Title, &adr.Status, &adr.FilePath,
		&adr.Context, &adr.Decision, &adr.Consequences,
		&adr.Supersedes, &adr.SupersededBy, &created, &updated)
	if err != nil {
		return ADR{}, err
	}
	adr.CreatedAt = parseTime(created)
	adr.UpdatedAt = parseTime(updated)
	return adr, nil
}

func (s *Store) GetADR(ctx context.Context, id string) (ADR, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adrColumns+` FROM adrs WHERE id = ?`, id)
	adr, err := scanADR(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ADR{}, cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", id)
	}
	if err != nil {
		return ADR{}, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan ADR")
	}
	return adr, nil
}

func (s *Store) ListADRs(ctx context.Context) ([]ADR, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adrColumns+` FROM adrs ORDER BY id`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "list ADRs")
	}
	defer rows.Close()

	var adrs []ADR
	for rows.Next() {
		adr, err := scanADR(rows.Scan)
		if err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan ADR row")
		}
		adrs = append(adrs, adr)
	}
	return adrs, rows.Err()
}

func (s *Store) UpdateADRStatus(ctx context.Context, id, status string) error {
	if !validStatus(status) {
		return cctxerr.Newf(cctxerr.CodeValidationError, "invalid ADR status %q", status)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE adrs SET status = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(time.Now()), id)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "update ADR status")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", id)
		}
		return nil
	})
}

// MarkSuperseded records that oldID was replaced by newID. Both sides of the
// reference are written in one transaction so symmetry holds by construction.
func (s *Store) MarkSuperseded(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return cctxerr.Newf(cctxerr.CodeValidationError, "ADR %q cannot supersede itself", oldID)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, id := range []string{oldID, newID} {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM adrs WHERE id = ?`, id).Scan(&exists); err != nil {
				return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check ADR existence")
			}
			if exists == 0 {
				return cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", id)
			}
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE adrs SET status = ?, superseded_by = ?, updated_at = ? WHERE id = ?`,
			StatusSuperseded, newID, now, oldID); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "mark ADR superseded")
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE adrs SET supersedes = ?, updated_at = ? WHERE id = ?`,
			oldID, now, newID); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "set supersedes back-reference")
		}
		return nil
	})
}

// DeleteADR removes the ADR row. Links and tags cascade via foreign keys.
func (s *Store) DeleteADR(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM adrs WHERE id = ?`, id)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "delete ADR")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", id)
		}
		return nil
	})
}

// LinkSystem ties an ADR to a system. Both entities must exist before the
// link is inserted.
func (s *Store) LinkSystem(ctx context.Context, adrID, systemPath string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM adrs WHERE id = ?`, adrID).Scan(&exists); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check ADR existence")
		}
		if exists == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", adrID)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems WHERE path = ?`, systemPath).Scan(&exists); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check system existence")
		}
		if exists == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "system %q not registered", systemPath)
		}
		_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO adr_systems (adr_id, system_path) VALUES (?, ?)`, adrID, systemPath)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert ADR link")
		}
		return nil
	})
}

func (s *Store) UnlinkSystem(ctx context.Context, adrID, systemPath string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
DELETE FROM adr_systems WHERE adr_id = ? AND system_path = ?`, adrID, systemPath)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "remove ADR link")
		}
		return nil
	})
}

func (s *Store) ListLinks(ctx context.Context) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT adr_id, system_path FROM adr_systems ORDER BY adr_id, system_path`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "list ADR links")
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ADRID, &l.SystemPath); err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan link row")
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) AddTag(ctx context.Context, adrID, tag string) error {
	if err := validateName(tag, "tag"); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM adrs WHERE id = ?`, adrID).Scan(&exists); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "check ADR existence")
		}
		if exists == 0 {
			return cctxerr.Newf(cctxerr.CodeNotFound, "ADR %q not registered", adrID)
		}
		_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO adr_tags (adr_id, tag) VALUES (?, ?)`, adrID, tag)
		if err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "insert tag")
		}
		return nil
	})
}

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT adr_id, tag FROM adr_tags ORDER BY adr_id, tag`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "list tags")
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ADRID, &t.Tag); err != nil {
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan tag row")
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
