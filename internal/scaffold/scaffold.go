// Package scaffold renders and writes the on-disk documentation bundle for
// a system: snapshot, constraints, decisions, and debt documents plus an
// empty adr/ directory.
package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

// SystemDocs lists the bundle documents in creation order.
var SystemDocs = []string{"snapshot", "constraints", "decisions", "debt"}

type SystemData struct {
	Name string
}

type ADRData struct {
	ID           string
	Title        string
	Status       string
	Context      string
	Decision     string
	Consequences string
}

func Render(name string, data interface{}) (string, error) {
	text, ok := bundleTemplates[name]
	if !ok {
		return "", cctxerr.Newf(cctxerr.CodeNotFound, "unknown template %q", name)
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "parse template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "render template")
	}
	return buf.String(), nil
}

// Bundle creates the documentation bundle under systemDir/ctxDir. Files are
// rendered into a temp directory on the same filesystem and renamed into
// place, so a partially written bundle is never observable.
func Bundle(systemDir, ctxDir, systemName string) (string, error) {
	target := filepath.Join(systemDir, ctxDir)

	if _, err := os.Stat(target); err == nil {
		return "", cctxerr.Newf(cctxerr.CodeConflict, "context directory already exists: %s", target)
	}

	if err := os.MkdirAll(systemDir, 0o755); err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "create system directory")
	}

	tmp, err := os.MkdirTemp(systemDir, ".ctx_tmp_")
	if err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "create scaffold staging directory")
	}
	defer func() {
		if tmp != "" {
			_ = os.RemoveAll(tmp)
		}
	}()

	for _, doc := range SystemDocs {
		content, err := Render(doc, SystemData{Name: systemName})
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(tmp, doc+".md"), []byte(content), 0o644); err != nil {
			return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "write bundle document")
		}
	}
	if err := os.Mkdir(filepath.Join(tmp, "adr"), 0o755); err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "create adr directory")
	}

	if err := os.Rename(tmp, target); err != nil {
		return "", cctxerr.Wrap(err, cctxerr.CodeInfrastructure, "move bundle into place")
	}
	tmp = ""

	return target, nil
}

// Remove deletes a bundle directory. Used to roll back a failed
// registration.
func Remove(systemDir, ctxDir string) error {
	return os.RemoveAll(filepath.Join(systemDir, ctxDir))
}
