// Package vcs provides modification-time sources for the freshness checker.
// Git history is preferred over filesystem metadata: a fresh checkout resets
// every mtime, but commit timestamps survive it.
package vcs

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mabrax/cctx/internal/shared/observability"
	"github.com/mabrax/cctx/internal/shared/util"
	"github.com/mabrax/cctx/internal/validate"
)

// GitMTimes resolves modification times from git log, falling back to the
// filesystem for untracked files. Subprocess spawn rate is bounded by a
// token bucket so large trees don't fork-bomb the machine.
type GitMTimes struct {
	root    string
	limiter *util.Limiter
}

func NewGitMTimes(root string, limiter *util.Limiter) *GitMTimes {
	return &GitMTimes{root: root, limiter: limiter}
}

func (g *GitMTimes) MTime(ctx context.Context, path string) (time.Time, bool) {
	if t, ok := g.gitMTime(ctx, path); ok {
		return t, true
	}
	return FSMTimes{}.MTime(ctx, path)
}

func (g *GitMTimes) gitMTime(ctx context.Context, path string) (time.Time, bool) {
	if err := g.limiter.Wait(ctx, 1); err != nil {
		return time.Time{}, false
	}
	observability.GitLookupsTotal.Inc()

	cmd := exec.CommandContext(ctx, "git", "-C", g.root, "log", "-1", "--format=%ai", "--", path)
	out, err := cmd.Output()
	if err != nil {
		// git absent or not a repository; the fs fallback covers it.
		return time.Time{}, false
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		// Tracked repo but the file has no commits yet.
		return time.Time{}, false
	}
	t, ok := validate.ParseTimestamp(raw)
	if !ok {
		slog.Debug("unparseable git timestamp", "path", path, "raw", raw)
		return time.Time{}, false
	}
	return t, true
}

// FSMTimes reads modification times straight from file metadata.
type FSMTimes struct{}

func (FSMTimes) MTime(_ context.Context, path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime().UTC(), true
}
