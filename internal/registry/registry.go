// Package registry holds the lifecycle operations that span the store and
// the filesystem. Registration writes both the registry row and the on-disk
// documentation bundle; a row without files, or files without a row, is
// never left visible.
package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/scaffold"
	"github.com/mabrax/cctx/internal/store"
)

type Registrar struct {
	store  *store.Store
	root   string
	ctxDir string
}

func New(s *store.Store, root, ctxDir string) *Registrar {
	return &Registrar{store: s, root: root, ctxDir: ctxDir}
}

// RegisterSystem scaffolds the documentation bundle, then commits the
// registry row. On store failure the bundle is removed again, so both sides
// succeed or neither does.
func (r *Registrar) RegisterSystem(ctx context.Context, path, name, description string) (store.System, error) {
	systemDir := filepath.Join(r.root, filepath.FromSlash(path))

	if _, err := scaffold.Bundle(systemDir, r.ctxDir, name); err != nil {
		return store.System{}, err
	}

	sys, err := r.store.CreateSystem(ctx, path, name, description)
	if err != nil {
		if rmErr := scaffold.Remove(systemDir, r.ctxDir); rmErr != nil {
			slog.Error("rollback of scaffolded bundle failed", "system", path, "error", rmErr)
		}
		return store.System{}, err
	}

	slog.Info("registered system", "system", path)
	return sys, nil
}

// UnregisterSystem deletes the registry row (dependency edges and ADR links
// cascade) and optionally the on-disk bundle.
func (r *Registrar) UnregisterSystem(ctx context.Context, path string, removeBundle bool) error {
	if err := r.store.DeleteSystem(ctx, path); err != nil {
		return err
	}
	if removeBundle {
		systemDir := filepath.Join(r.root, filepath.FromSlash(path))
		if err := scaffold.Remove(systemDir, r.ctxDir); err != nil {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "remove documentation bundle")
		}
	}
	slog.Info("unregistered system", "system", path)
	return nil
}

// CreateADR writes the ADR markdown file and the registry row (with links
// and tags) atomically: a failed insert removes the freshly written file.
func (r *Registrar) CreateADR(ctx context.Context, adr store.ADR, systemPaths, tags []string) (store.ADR, error) {
	filePath := filepath.Join(r.root, filepath.FromSlash(adr.FilePath))

	if _, err := os.Stat(filePath); err == nil {
		return store.ADR{}, cctxerr.Newf(cctxerr.CodeConflict, "ADR file already exists: %s", adr.FilePath)
	}

	content, err := scaffold.Render("adr", scaffold.ADRData{
		ID:           adr.ID,
		Title:        adr.Title,
		Status:       adr.Status,
		Context:      adr.Context,
		Decision:     adr.Decision,
		Consequences: adr.Consequences,
	})
	if err != nil {
		return store.ADR{}, err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return store.ADR{}, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "create ADR directory")
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return store.ADR{}, cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "write ADR file")
	}

	created, err := r.store.CreateADRWithRelations(ctx, adr, systemPaths, tags)
	if err != nil {
		if rmErr := os.Remove(filePath); rmErr != nil {
			slog.Error("rollback of ADR file failed", "adr", adr.ID, "error", rmErr)
		}
		return store.ADR{}, err
	}

	slog.Info("created ADR", "adr", adr.ID, "file", adr.FilePath)
	return created, nil
}

// RemoveADR deletes the registry row (links and tags cascade) and
// optionally the markdown file.
func (r *Registrar) RemoveADR(ctx context.Context, id string, removeFile bool) error {
	adr, err := r.store.GetADR(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteADR(ctx, id); err != nil {
		return err
	}
	if removeFile {
		filePath := filepath.Join(r.root, filepath.FromSlash(adr.FilePath))
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "remove ADR file")
		}
	}
	slog.Info("removed ADR", "adr", id)
	return nil
}
