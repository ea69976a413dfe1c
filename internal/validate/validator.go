package validate

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/mabrax/cctx/internal/config"
	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/store"
)

// MTimeSource answers "when did this file last change". Implementations may
// consult git history or fall back to filesystem metadata.
type MTimeSource interface {
	MTime(ctx context.Context, path string) (time.Time, bool)
}

// Validator inspects one registry snapshot plus the filesystem and reports
// findings. Implementations must be read-only and safe to run concurrently
// with each other.
type Validator interface {
	Name() string
	Validate(ctx context.Context, vctx *Context) (Result, error)
}

// Context carries everything a validator reads: one consistent registry
// snapshot, the project root, configuration, compiled exclude patterns, a
// modification-time source, and a clock.
type Context struct {
	Snapshot *store.Snapshot
	Root     string
	Config   *config.Config
	MTimes   MTimeSource
	Now      func() time.Time

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	sourceExts   map[string]bool
}

func NewContext(snap *store.Snapshot, root string, cfg *config.Config, mtimes MTimeSource) (*Context, error) {
	vctx := &Context{
		Snapshot:   snap,
		Root:       root,
		Config:     cfg,
		MTimes:     mtimes,
		Now:        time.Now,
		sourceExts: make(map[string]bool, len(cfg.Sources.Extensions)),
	}
	for _, pattern := range cfg.Exclude.Dirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, cctxerr.Newf(cctxerr.CodeValidationError, "invalid exclude pattern %q: %v", pattern, err)
		}
		vctx.excludeDirs = append(vctx.excludeDirs, g)
	}
	for _, pattern := range cfg.Exclude.Files {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, cctxerr.Newf(cctxerr.CodeValidationError, "invalid exclude pattern %q: %v", pattern, err)
		}
		vctx.excludeFiles = append(vctx.excludeFiles, g)
	}
	for _, ext := range cfg.Sources.Extensions {
		vctx.sourceExts[ext] = true
	}
	return vctx, nil
}

// ExcludedDir reports whether a directory name matches an exclude pattern.
// The context directory itself is always excluded from source scans.
func (c *Context) ExcludedDir(name string) bool {
	if name == c.Config.CtxDir {
		return true
	}
	for _, g := range c.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (c *Context) ExcludedFile(name string) bool {
	for _, g := range c.excludeFiles {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// SourceFile reports whether a file counts as tracked source for freshness.
func (c *Context) SourceFile(name string) bool {
	return c.sourceExts[filepath.Ext(name)]
}

// SystemDir resolves a registry system path to its absolute directory.
func (c *Context) SystemDir(systemPath string) string {
	return filepath.Join(c.Root, filepath.FromSlash(systemPath))
}

// DocPath resolves a bundle document for a system, e.g. "snapshot.md".
func (c *Context) DocPath(systemPath, doc string) string {
	return filepath.Join(c.SystemDir(systemPath), c.Config.CtxDir, doc)
}

// externalRef reports references that name things outside the registry:
// third-party packages marked "(external)", plain file paths, or free text.
func externalRef(ref string) bool {
	if strings.Contains(strings.ToLower(ref), "(external)") {
		return true
	}
	if ext := filepath.Ext(ref); ext != "" && ext != "." && !strings.Contains(ext, " ") {
		switch ext {
		case ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".go",
			".json", ".yaml", ".yml", ".md", ".css", ".html":
			return true
		}
	}
	return strings.Contains(ref, " ") && !strings.HasPrefix(ref, "src/")
}
