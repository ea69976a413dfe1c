package validate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabrax/cctx/internal/store"
)

func TestSnapshotValidatorMissingDoc(t *testing.T) {
	root := t.TempDir()
	snap := &store.Snapshot{
		Systems: []store.System{system("src/audio", "Audio", time.Now())},
	}
	vctx := newTestContext(t, snap, root, nil)

	res, err := SnapshotValidator{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	missing := findingsWithCode(res.Findings, "missing_snapshot")
	require.Len(t, missing, 1)
	assert.Equal(t, SeverityError, missing[0].Severity)
	assert.True(t, missing[0].Fixable)
	assert.Equal(t, "missing_snapshot", missing[0].FixID)
	assert.Equal(t, "src/audio", missing[0].System)
}

func TestSnapshotValidatorFilesTable(t *testing.T) {
	root := t.TempDir()
	snap := &store.Snapshot{
		Systems: []store.System{system("src/audio", "Audio", time.Now())},
	}
	writeFile(t, root, "src/audio/mixer.go", "package audio\n")
	writeDoc(t, root, "src/audio", "snapshot.md", `# Audio — Snapshot

## Files

| File | Role |
| ---- | ---- |
| `+"`mixer.go`"+` | mixing |
| `+"`gone.go`"+`  | absent |
`)
	vctx := newTestContext(t, snap, root, nil)

	res, err := SnapshotValidator{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	missing := findingsWithCode(res.Findings, "missing_file")
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0].Message, "gone.go")
}

func TestSnapshotValidatorDependencyDiff(t *testing.T) {
	root := t.TempDir()
	snap := &store.Snapshot{
		Systems: []store.System{
			system("src/audio", "Audio", time.Now()),
			system("src/events", "Events", time.Now()),
			system("src/save", "Save", time.Now()),
		},
		Dependencies: []store.Dependency{
			{SystemPath: "src/audio", DependsOn: "src/events"},
			{SystemPath: "src/audio", DependsOn: "src/save"},
		},
	}
	// Declares src/events (recorded), src/ghost (never registered), and an
	// external package; omits src/save (recorded but undeclared).
	writeDoc(t, root, "src/audio", "snapshot.md", `# Audio — Snapshot

## Dependencies

| System | Why |
| ------ | --- |
| `+"`src/events`"+` | bus |
| `+"`src/ghost`"+`  | ??? |
| howler (external) | playback |
`)
	writeDoc(t, root, "src/events", "snapshot.md", "# Events — Snapshot\n")
	writeDoc(t, root, "src/save", "snapshot.md", "# Save — Snapshot\n")
	vctx := newTestContext(t, snap, root, nil)

	res, err := SnapshotValidator{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	unknown := findingsWithCode(res.Findings, "unknown_system")
	require.Len(t, unknown, 1)
	assert.Contains(t, unknown[0].Message, "src/ghost")

	unresolved := findingsWithCode(res.Findings, "unresolved_dependency")
	require.Len(t, unresolved, 1)
	assert.Contains(t, unresolved[0].Message, "src/save")
	assert.Equal(t, "src/audio", unresolved[0].System)
}

func TestSnapshotValidatorCleanPass(t *testing.T) {
	root := t.TempDir()
	snap := &store.Snapshot{
		Systems: []store.System{
			system("src/audio", "Audio", time.Now()),
			system("src/events", "Events", time.Now()),
		},
		Dependencies: []store.Dependency{
			{SystemPath: "src/audio", DependsOn: "src/events"},
		},
	}
	writeDoc(t, root, "src/audio", "snapshot.md", `# Audio — Snapshot

## Dependencies

| System | Why |
| ------ | --- |
| `+"`src/events`"+` | bus |
`)
	writeDoc(t, root, "src/events", "snapshot.md", "# Events — Snapshot\n")
	vctx := newTestContext(t, snap, root, nil)

	res, err := SnapshotValidator{}.Validate(context.Background(), vctx)
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
}
