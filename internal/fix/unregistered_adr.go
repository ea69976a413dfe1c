package fix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/store"
	"github.com/mabrax/cctx/internal/validate"
)

// unregisteredADRFixer recovers a registry row from an on-disk ADR file.
// The row is written in one transaction; if it already exists the fix is a
// no-op.
type unregisteredADRFixer struct {
	store *store.Store
	root  string
}

func (*unregisteredADRFixer) ID() string { return "unregistered_adr" }

func (*unregisteredADRFixer) Describe(f validate.Finding) string {
	return fmt.Sprintf("register %s from its file", f.ADR)
}

func (x *unregisteredADRFixer) Apply(ctx context.Context, f validate.Finding) error {
	if f.File == "" {
		return cctxerr.New(cctxerr.CodeValidationError, "finding names no file")
	}

	data, err := os.ReadFile(filepath.Join(x.root, filepath.FromSlash(f.File)))
	if err != nil {
		return cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "read ADR file")
	}

	adr, err := parseADRFile(string(data))
	if err != nil {
		return err
	}
	adr.FilePath = f.File

	_, err = x.store.CreateADR(ctx, adr)
	if cctxerr.IsCode(err, cctxerr.CodeConflict) {
		return nil // row appeared since the finding; already healthy
	}
	return err
}

// parseADRFile extracts the registry fields from ADR markdown: the id and
// title from the top-level heading, the status line, and the three standard
// sections.
func parseADRFile(content string) (store.ADR, error) {
	var adr store.ADR

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "# ") {
			continue
		}
		heading := strings.TrimSpace(trimmed[2:])
		if id, title, ok := strings.Cut(heading, ":"); ok && strings.HasPrefix(id, "ADR-") {
			adr.ID = strings.TrimSpace(id)
			adr.Title = strings.TrimSpace(title)
		} else if strings.HasPrefix(heading, "ADR-") {
			adr.ID = heading
			adr.Title = heading
		}
		break
	}
	if adr.ID == "" {
		return store.ADR{}, cctxerr.New(cctxerr.CodeValidationError, "ADR file has no recognizable id heading")
	}

	adr.Status = parseADRStatus(content)
	if s, ok := validate.Section(content, "Context", 2); ok {
		adr.Context = s
	}
	if s, ok := validate.Section(content, "Decision", 2); ok {
		adr.Decision = s
	}
	if s, ok := validate.Section(content, "Consequences", 2); ok {
		adr.Consequences = s
	}
	return adr, nil
}

func parseADRStatus(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.HasPrefix(lower, "**status**:") {
			continue
		}
		status := strings.ToLower(strings.TrimSpace(trimmed[len("**Status**:"):]))
		switch status {
		case store.StatusProposed, store.StatusAccepted, store.StatusDeprecated, store.StatusSuperseded:
			return status
		}
		break
	}
	return store.StatusProposed
}
