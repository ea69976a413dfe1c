package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabrax/cctx/internal/shared/util"
)

func TestFSMTimes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	stamp := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	got, ok := FSMTimes{}.MTime(context.Background(), path)
	require.True(t, ok)
	assert.True(t, got.Equal(stamp))
}

func TestFSMTimesMissingFile(t *testing.T) {
	_, ok := FSMTimes{}.MTime(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.False(t, ok)
}

func TestGitMTimesFallsBackOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	stamp := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	// A temp dir is not a git repository, so the lookup falls through to
	// filesystem metadata.
	src := NewGitMTimes(dir, util.NewLimiter(100, 10))
	got, ok := src.MTime(context.Background(), path)
	require.True(t, ok)
	assert.True(t, got.Equal(stamp))
}
