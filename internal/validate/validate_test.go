package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mabrax/cctx/internal/config"
	"github.com/mabrax/cctx/internal/store"
)

// fakeMTimes serves canned modification times keyed by absolute path.
type fakeMTimes struct {
	times map[string]time.Time
}

func (f fakeMTimes) MTime(_ context.Context, path string) (time.Time, bool) {
	t, ok := f.times[path]
	return t, ok
}

// fsMTimes reads filesystem metadata; used where exact instants don't matter.
type fsMTimes struct{}

func (fsMTimes) MTime(_ context.Context, path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func newTestContext(t *testing.T, snap *store.Snapshot, root string, mtimes MTimeSource) *Context {
	t.Helper()
	if mtimes == nil {
		mtimes = fsMTimes{}
	}
	vctx, err := NewContext(snap, root, config.Default(), mtimes)
	require.NoError(t, err)
	return vctx
}

func writeDoc(t *testing.T, root, systemPath, doc, content string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(systemPath), ".ctx")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, doc)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func system(path, name string, updated time.Time) store.System {
	return store.System{Path: path, Name: name, CreatedAt: updated, UpdatedAt: updated}
}

func findingsWithCode(findings []Finding, code string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}
