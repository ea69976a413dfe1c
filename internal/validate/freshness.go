package validate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mabrax/cctx/internal/graph"
)

// trackedDocs are the bundle documents the freshness checker compares
// against source activity.
var trackedDocs = []string{"snapshot.md", "constraints.md", "decisions.md", "debt.md"}

// FreshnessChecker flags documentation that lags the code it describes. A
// document older than the threshold relative to the newest tracked source
// file warns; past the severe threshold it errors. The graph artifact is
// additionally checked against the registry watermark.
type FreshnessChecker struct{}

func (FreshnessChecker) Name() string { return "freshness" }

func (FreshnessChecker) Validate(ctx context.Context, vctx *Context) (Result, error) {
	res := Result{Validator: "freshness"}

	var systems []string
	for _, sys := range vctx.Snapshot.Systems {
		systems = append(systems, sys.Path)
	}
	sort.Strings(systems)

	for _, sysPath := range systems {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sourceMTime, ok := latestSourceMTime(ctx, vctx, sysPath)
		if !ok {
			continue
		}
		for _, doc := range trackedDocs {
			res.Findings = append(res.Findings, checkDocFreshness(ctx, vctx, sysPath, doc, sourceMTime)...)
		}
	}

	res.Findings = append(res.Findings, checkGraphArtifact(vctx)...)
	return res, nil
}

// latestSourceMTime walks a system directory for the newest tracked source
// file, skipping the context directory and excluded paths.
func latestSourceMTime(ctx context.Context, vctx *Context, sysPath string) (time.Time, bool) {
	var latest time.Time
	found := false

	root := vctx.SystemDir(sysPath)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && vctx.ExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if vctx.ExcludedFile(d.Name()) || !vctx.SourceFile(d.Name()) {
			return nil
		}
		mtime, ok := vctx.MTimes.MTime(ctx, path)
		if ok && (!found || mtime.After(latest)) {
			latest = mtime
			found = true
		}
		return nil
	})
	return latest, found
}

func checkDocFreshness(ctx context.Context, vctx *Context, sysPath, doc string, sourceMTime time.Time) []Finding {
	docPath := vctx.DocPath(sysPath, doc)
	if _, err := os.Stat(docPath); err != nil {
		return nil
	}
	docMTime, ok := vctx.MTimes.MTime(ctx, docPath)
	if !ok {
		return nil
	}

	gap := sourceMTime.Sub(docMTime)
	threshold := time.Duration(vctx.Config.Freshness.ThresholdDays) * 24 * time.Hour
	severe := time.Duration(vctx.Config.Freshness.SevereDays) * 24 * time.Hour
	if gap <= threshold {
		return nil
	}

	days := int(gap.Hours() / 24)
	if gap > severe {
		return []Finding{{
			Code:     "stale_doc",
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is severely stale (%d days behind source)", doc, days),
			System:   sysPath,
			File:     doc,
			Hint:     "review the document against recent source changes",
		}}
	}
	return []Finding{{
		Code:     "stale_doc",
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%s is %d days older than source files", doc, days),
		System:   sysPath,
		File:     doc,
		Hint:     "review the document against recent source changes",
	}}
}

// checkGraphArtifact compares the artifact's generated_at against the
// registry watermark. Regeneration is cheap and idempotent, so any lag at
// all is worth flagging.
func checkGraphArtifact(vctx *Context) []Finding {
	artifactPath := filepath.Join(vctx.Root, vctx.Config.CtxDir, "graph.json")
	if _, err := os.Stat(artifactPath); err != nil {
		return nil
	}

	art, err := graph.ReadArtifact(artifactPath)
	relPath := filepath.ToSlash(filepath.Join(vctx.Config.CtxDir, "graph.json"))
	if err != nil {
		return []Finding{{
			Code:     "stale_graph",
			Severity: SeverityWarning,
			Message:  "graph.json is unreadable",
			File:     relPath,
			Fixable:  true,
			FixID:    "stale_graph",
			Hint:     "apply the stale_graph fix to regenerate the artifact",
		}}
	}

	generatedAt, ok := ParseTimestamp(art.GeneratedAt)
	if ok && !vctx.Snapshot.Watermark().After(generatedAt) {
		return nil
	}
	return []Finding{{
		Code:     "stale_graph",
		Severity: SeverityWarning,
		Message:  "graph.json is older than the registry state",
		File:     relPath,
		Fixable:  true,
		FixID:    "stale_graph",
		Hint:     "apply the stale_graph fix to regenerate the artifact",
	}}
}
