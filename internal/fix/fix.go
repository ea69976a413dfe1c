// Package fix holds the auto-remediation catalogue. Planning is pure: it
// maps fixable findings to planned fixes without touching disk or database.
// Application writes, one fix at a time; a failed fix is scoped to itself
// and never aborts the rest of the plan.
package fix

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/shared/observability"
	"github.com/mabrax/cctx/internal/store"
	"github.com/mabrax/cctx/internal/validate"
)

// Fixer remediates one class of finding. Apply must be idempotent: running
// it against an already-healthy target is a no-op, not an error.
type Fixer interface {
	ID() string
	Describe(f validate.Finding) string
	Apply(ctx context.Context, f validate.Finding) error
}

type PlannedFix struct {
	FixID       string           `json:"fix_id"`
	Description string           `json:"description"`
	Finding     validate.Finding `json:"finding"`
}

type Plan struct {
	ID    string       `json:"id"`
	Fixes []PlannedFix `json:"fixes"`
}

const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

type Result struct {
	FixID   string `json:"fix_id"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Registry is the keyed fix catalogue.
type Registry struct {
	order  []string
	fixers map[string]Fixer
}

func NewRegistry(fixers ...Fixer) *Registry {
	r := &Registry{fixers: make(map[string]Fixer, len(fixers))}
	for _, f := range fixers {
		if _, dup := r.fixers[f.ID()]; dup {
			continue
		}
		r.order = append(r.order, f.ID())
		r.fixers[f.ID()] = f
	}
	return r
}

// DefaultRegistry wires the full catalogue against one store and project root.
func DefaultRegistry(st *store.Store, root, ctxDir string) *Registry {
	return NewRegistry(
		&missingSnapshotFixer{store: st, root: root, ctxDir: ctxDir},
		&staleGraphFixer{store: st, root: root, ctxDir: ctxDir},
		&unregisteredADRFixer{store: st, root: root},
	)
}

// BuildPlan selects every fixable finding the catalogue knows how to handle.
// Pure: no I/O. The fix order is deterministic for a given report.
func (r *Registry) BuildPlan(rep validate.Report) Plan {
	plan := Plan{ID: uuid.NewString()}

	consider := func(findings []validate.Finding) {
		for _, f := range findings {
			if !f.Fixable {
				continue
			}
			fixer, ok := r.fixers[f.FixID]
			if !ok {
				continue
			}
			plan.Fixes = append(plan.Fixes, PlannedFix{
				FixID:       f.FixID,
				Description: fixer.Describe(f),
				Finding:     f,
			})
		}
	}
	consider(rep.Errors)
	consider(rep.Warnings)
	consider(rep.Infos)

	sort.Slice(plan.Fixes, func(i, j int) bool {
		a, b := plan.Fixes[i], plan.Fixes[j]
		if a.FixID != b.FixID {
			return a.FixID < b.FixID
		}
		if a.Finding.System != b.Finding.System {
			return a.Finding.System < b.Finding.System
		}
		return a.Finding.File < b.Finding.File
	})
	return plan
}

// Apply executes the plan. Failures are scoped: each failed fix is recorded
// and the remaining fixes still run.
func (r *Registry) Apply(ctx context.Context, plan Plan) []Result {
	ctx, span := observability.Tracer.Start(ctx, "fix.Apply")
	defer span.End()

	results := make([]Result, 0, len(plan.Fixes))
	for _, pf := range plan.Fixes {
		fixer, ok := r.fixers[pf.FixID]
		if !ok {
			continue
		}

		res := Result{FixID: pf.FixID, Target: fixTarget(pf.Finding), Outcome: OutcomeApplied}
		if err := fixer.Apply(ctx, pf.Finding); err != nil {
			wrapped := cctxerr.Wrap(err, cctxerr.CodeFixApply, "apply "+pf.FixID)
			res.Outcome = OutcomeFailed
			res.Error = wrapped.Error()
			slog.Error("fix failed", "fix", pf.FixID, "target", res.Target, "error", err)
		} else {
			slog.Info("fix applied", "fix", pf.FixID, "target", res.Target)
		}
		observability.FixesAppliedTotal.WithLabelValues(pf.FixID, res.Outcome).Inc()
		results = append(results, res)
	}
	return results
}

func fixTarget(f validate.Finding) string {
	if f.File != "" {
		return f.File
	}
	if f.System != "" {
		return f.System
	}
	return f.ADR
}
