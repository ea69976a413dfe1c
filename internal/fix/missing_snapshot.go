package fix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/scaffold"
	"github.com/mabrax/cctx/internal/store"
	"github.com/mabrax/cctx/internal/validate"
)

// missingSnapshotFixer scaffolds snapshot.md for a system whose document is
// gone. It only ever acts on an absent file.
type missingSnapshotFixer struct {
	store  *store.Store
	root   string
	ctxDir string
}

func (*missingSnapshotFixer) ID() string { return "missing_snapshot" }

func (*missingSnapshotFixer) Describe(f validate.Finding) string {
	return fmt.Sprintf("create snapshot.md from template for system %q", f.System)
}

func (x *missingSnapshotFixer) Apply(ctx context.Context, f validate.Finding) error {
	if f.System == "" {
		return cctxerr.New(cctxerr.CodeValidationError, "finding names no system")
	}

	docPath := filepath.Join(x.root, filepath.FromSlash(f.System), x.ctxDir, "snapshot.md")
	if _, err := os.Stat(docPath); err == nil {
		return nil // already healthy
	}

	name := filepath.Base(f.System)
	if sys, err := x.store.GetSystem(ctx, f.System); err == nil {
		name = sys.Name
	}

	content, err := scaffold.Render("snapshot", scaffold.SystemData{Name: name})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(docPath), 0o755); err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "create context directory")
	}
	if err := os.WriteFile(docPath, []byte(content), 0o644); err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "write snapshot.md")
	}
	return nil
}
