package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSystemCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sys, err := s.CreateSystem(ctx, "src/systems/audio", "Audio", "sound playback")
	require.NoError(t, err)
	assert.False(t, sys.CreatedAt.IsZero())

	got, err := s.GetSystem(ctx, "src/systems/audio")
	require.NoError(t, err)
	assert.Equal(t, "Audio", got.Name)
	assert.Equal(t, "sound playback", got.Description)

	_, err = s.CreateSystem(ctx, "src/systems/audio", "Audio", "")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeConflict))

	_, err = s.GetSystem(ctx, "src/systems/ghost")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeNotFound))

	require.NoError(t, s.UpdateSystem(ctx, "src/systems/audio", "Audio Engine", ""))
	got, err = s.GetSystem(ctx, "src/systems/audio")
	require.NoError(t, err)
	assert.Equal(t, "Audio Engine", got.Name)
	assert.Equal(t, "sound playback", got.Description)
}

func TestSystemPathValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "", "Empty", "")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeValidationError))

	_, err = s.CreateSystem(ctx, "../escape", "Traversal", "")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeValidationError))
}

func TestDependencies(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "src/a", "A", "")
	require.NoError(t, err)
	_, err = s.CreateSystem(ctx, "src/b", "B", "")
	require.NoError(t, err)

	require.NoError(t, s.AddDependency(ctx, "src/a", "src/b"))

	err = s.AddDependency(ctx, "src/a", "src/a")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeValidationError), "self-loop must be rejected")

	err = s.AddDependency(ctx, "src/a", "src/ghost")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeNotFound), "unknown endpoint must be rejected")

	deps, err := s.ListDependencies(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, Dependency{SystemPath: "src/a", DependsOn: "src/b"}, deps[0])
}

func TestDeleteSystemCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "src/a", "A", "")
	require.NoError(t, err)
	_, err = s.CreateSystem(ctx, "src/b", "B", "")
	require.NoError(t, err)
	require.NoError(t, s.AddDependency(ctx, "src/a", "src/b"))

	_, err = s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "Use events", Status: StatusAccepted, FilePath: "src/a/.ctx/adr/ADR-001.md"})
	require.NoError(t, err)
	require.NoError(t, s.LinkSystem(ctx, "ADR-001", "src/a"))

	require.NoError(t, s.DeleteSystem(ctx, "src/a"))

	deps, err := s.ListDependencies(ctx)
	require.NoError(t, err)
	assert.Empty(t, deps, "dependency edges must cascade")

	links, err := s.ListLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links, "ADR links must cascade")

	// The ADR itself survives; only its link to the removed system goes.
	_, err = s.GetADR(ctx, "ADR-001")
	assert.NoError(t, err)
}

func TestDeleteADRCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "src/a", "A", "")
	require.NoError(t, err)
	_, err = s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "Use events", Status: StatusAccepted, FilePath: "src/a/.ctx/adr/ADR-001.md"})
	require.NoError(t, err)
	require.NoError(t, s.LinkSystem(ctx, "ADR-001", "src/a"))
	require.NoError(t, s.AddTag(ctx, "ADR-001", "architecture"))

	require.NoError(t, s.DeleteADR(ctx, "ADR-001"))

	links, err := s.ListLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestADRUniqueFilePath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "One", Status: StatusProposed, FilePath: ".ctx/adr/ADR-001.md"})
	require.NoError(t, err)

	_, err = s.CreateADR(ctx, ADR{ID: "ADR-002", Title: "Two", Status: StatusProposed, FilePath: ".ctx/adr/ADR-001.md"})
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeConflict))
}

func TestMarkSuperseded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "Old", Status: StatusAccepted, FilePath: ".ctx/adr/ADR-001.md"})
	require.NoError(t, err)
	_, err = s.CreateADR(ctx, ADR{ID: "ADR-002", Title: "New", Status: StatusAccepted, FilePath: ".ctx/adr/ADR-002.md"})
	require.NoError(t, err)

	require.NoError(t, s.MarkSuperseded(ctx, "ADR-001", "ADR-002"))

	old, err := s.GetADR(ctx, "ADR-001")
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, old.Status)
	assert.Equal(t, "ADR-002", old.SupersededBy)

	next, err := s.GetADR(ctx, "ADR-002")
	require.NoError(t, err)
	assert.Equal(t, "ADR-001", next.Supersedes)

	err = s.MarkSuperseded(ctx, "ADR-001", "ADR-001")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeValidationError))
}

func TestLinkValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "One", Status: StatusProposed, FilePath: ".ctx/adr/ADR-001.md"})
	require.NoError(t, err)

	err = s.LinkSystem(ctx, "ADR-001", "src/ghost")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeNotFound))

	err = s.LinkSystem(ctx, "ADR-404", "src/ghost")
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeNotFound))
}

func TestLoadSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "src/a", "A", "")
	require.NoError(t, err)
	_, err = s.CreateSystem(ctx, "src/b", "B", "")
	require.NoError(t, err)
	require.NoError(t, s.AddDependency(ctx, "src/a", "src/b"))
	_, err = s.CreateADR(ctx, ADR{ID: "ADR-001", Title: "One", Status: StatusAccepted, FilePath: ".ctx/adr/ADR-001.md"})
	require.NoError(t, err)
	require.NoError(t, s.LinkSystem(ctx, "ADR-001", "src/a"))
	require.NoError(t, s.AddTag(ctx, "ADR-001", "infra"))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Systems, 2)
	assert.Len(t, snap.Dependencies, 1)
	assert.Len(t, snap.ADRs, 1)
	assert.Len(t, snap.Links, 1)
	assert.Len(t, snap.Tags, 1)

	assert.Equal(t, []string{"src/b"}, snap.DependenciesOf("src/a"))
	assert.False(t, snap.Watermark().IsZero())

	wm, err := s.Watermark(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Watermark(), wm)
}
