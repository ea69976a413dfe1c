package store

import (
	"context"
	"database/sql"
	"time"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

// LoadSnapshot reads all five collections inside one read transaction.
// A concurrent external writer can never produce a torn view of a run.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "begin snapshot read")
	}
	defer func() { _ = tx.Rollback() }()

	snap := &Snapshot{}

	rows, err := tx.QueryContext(ctx, `
SELECT path, name, COALESCE(description, ''), created_at, updated_at
FROM systems ORDER BY path`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot systems")
	}
	for rows.Next() {
		var sys System
		var created, updated string
		if err := rows.Scan(&sys.Path, &sys.Name, &sys.Description, &created, &updated); err != nil {
			rows.Close()
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan snapshot system")
		}
		sys.CreatedAt = parseTime(created)
		sys.UpdatedAt = parseTime(updated)
		snap.Systems = append(snap.Systems, sys)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot systems")
	}

	rows, err = tx.QueryContext(ctx, `
SELECT system_path, depends_on FROM system_dependencies ORDER BY system_path, depends_on`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot dependencies")
	}
	for rows.Next() {
		var d Dependency
		if err := rows.Scan(&d.SystemPath, &d.DependsOn); err != nil {
			rows.Close()
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan snapshot dependency")
		}
		snap.Dependencies = append(snap.Dependencies, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot dependencies")
	}

	rows, err = tx.QueryContext(ctx, `SELECT `+adrColumns+` FROM adrs ORDER BY id`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot ADRs")
	}
	for rows.Next() {
		adr, err := scanADR(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan snapshot ADR")
		}
		snap.ADRs = append(snap.ADRs, adr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot ADRs")
	}

	rows, err = tx.QueryContext(ctx, `
SELECT adr_id, system_path FROM adr_systems ORDER BY adr_id, system_path`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot links")
	}
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ADRID, &l.SystemPath); err != nil {
			rows.Close()
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan snapshot link")
		}
		snap.Links = append(snap.Links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot links")
	}

	rows, err = tx.QueryContext(ctx, `SELECT adr_id, tag FROM adr_tags ORDER BY adr_id, tag`)
	if err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot tags")
	}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ADRID, &t.Tag); err != nil {
			rows.Close()
			return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "scan snapshot tag")
		}
		snap.Tags = append(snap.Tags, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "snapshot tags")
	}

	return snap, nil
}

// Watermark returns the latest updated_at across systems and ADRs. The graph
// artifact's generation timestamp derives from this, not from wall clock, so
// regeneration against unchanged state is byte-identical.
func (s *Store) Watermark(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT MAX(updated_at) FROM (
  SELECT updated_at FROM systems
  UNION ALL
  SELECT updated_at FROM adrs
)`).Scan(&raw)
	if err != nil {
		return time.Time{}, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "read store watermark")
	}
	if !raw.Valid {
		return time.Time{}, nil
	}
	return parseTime(raw.String), nil
}
