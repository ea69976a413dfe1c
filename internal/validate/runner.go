package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mabrax/cctx/internal/config"
	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/graph"
	"github.com/mabrax/cctx/internal/shared/observability"
	"github.com/mabrax/cctx/internal/store"
)

// SnapshotLoader is satisfied by *store.Store.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*store.Snapshot, error)
}

// Options selects which validators run. PreCommit restricts the set to the
// fast registry-vs-filesystem checks; Deep adds the freshness checker and
// structural graph analysis on top of whatever else is selected.
type Options struct {
	Validators []string
	Deep       bool
	PreCommit  bool
}

// Runner executes validators concurrently over one registry snapshot loaded
// at the start of the run. A misbehaving validator is isolated: panics and
// errors become synthetic findings, overruns become timeout warnings.
type Runner struct {
	loader SnapshotLoader
	root   string
	cfg    *config.Config
	mtimes MTimeSource
	now    func() time.Time

	// Declaration order fixes the order findings merge in.
	validators []Validator
}

func NewRunner(loader SnapshotLoader, root string, cfg *config.Config, mtimes MTimeSource) *Runner {
	return &Runner{
		loader: loader,
		root:   root,
		cfg:    cfg,
		mtimes: mtimes,
		now:    time.Now,
		validators: []Validator{
			SnapshotValidator{},
			ADRValidator{},
			DebtAuditor{},
			FreshnessChecker{},
		},
	}
}

var preCommitValidators = []string{"snapshot", "adr"}

func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "validate.Run")
	defer span.End()

	snap, err := r.loader.LoadSnapshot(ctx)
	if err != nil {
		return Report{}, err
	}

	vctx, err := NewContext(snap, r.root, r.cfg, r.mtimes)
	if err != nil {
		return Report{}, err
	}
	vctx.Now = r.now

	selected, err := r.selectValidators(opts)
	if err != nil {
		return Report{}, err
	}

	results := make([][]Finding, len(selected))
	jobs := make(chan int)

	workers := r.cfg.Runner.Workers
	if workers <= 0 || workers > len(selected) {
		workers = len(selected)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.execute(ctx, selected[i], vctx)
			}
		}()
	}
	for i := range selected {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var findings []Finding
	for _, fs := range results {
		findings = append(findings, fs...)
	}
	if opts.Deep {
		findings = append(findings, structuralFindings(snap)...)
	}

	rep := BuildReport(findings)
	observability.RunsTotal.WithLabelValues(string(rep.Status)).Inc()
	slog.Info("validation run complete",
		"run_id", rep.RunID,
		"status", rep.Status,
		"errors", len(rep.Errors),
		"warnings", len(rep.Warnings))
	return rep, nil
}

func (r *Runner) selectValidators(opts Options) ([]Validator, error) {
	byName := make(map[string]Validator, len(r.validators))
	for _, v := range r.validators {
		byName[v.Name()] = v
	}

	names := opts.Validators
	if len(names) == 0 {
		if opts.PreCommit {
			names = preCommitValidators
		} else {
			for _, v := range r.validators {
				names = append(names, v.Name())
			}
		}
	}
	if opts.Deep && !contains(names, "freshness") {
		names = append(names, "freshness")
	}

	var selected []Validator
	for _, name := range names {
		v, ok := byName[name]
		if !ok {
			return nil, cctxerr.Newf(cctxerr.CodeValidationError, "unknown validator %q", name)
		}
		selected = append(selected, v)
	}
	return selected, nil
}

// execute runs one validator under a wall-clock budget with panic recovery.
// The run never dies because one validator did.
func (r *Runner) execute(ctx context.Context, v Validator, vctx *Context) []Finding {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)

	vctxTimeout, cancel := context.WithTimeout(ctx, r.cfg.Runner.Timeout)
	defer cancel()

	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res, err := v.Validate(vctxTimeout, vctx)
		ch <- outcome{res: res, err: err}
	}()

	var findings []Finding
	select {
	case out := <-ch:
		observability.ValidatorDuration.WithLabelValues(v.Name()).Observe(time.Since(start).Seconds())
		if out.err != nil {
			slog.Error("validator failed", "validator", v.Name(), "error", out.err)
			findings = []Finding{{
				Code:     "validator_crashed",
				Severity: SeverityError,
				Message:  fmt.Sprintf("validator %s failed: %v", v.Name(), out.err),
			}}
		} else {
			findings = out.res.Findings
		}
	case <-vctxTimeout.Done():
		observability.ValidatorDuration.WithLabelValues(v.Name()).Observe(time.Since(start).Seconds())
		slog.Warn("validator timed out", "validator", v.Name(), "budget", r.cfg.Runner.Timeout)
		findings = []Finding{{
			Code:     "timed_out",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("validator %s exceeded its %s budget", v.Name(), r.cfg.Runner.Timeout),
		}}
	}

	for _, f := range findings {
		observability.FindingsTotal.WithLabelValues(v.Name(), string(f.Severity)).Inc()
	}
	return findings
}

// structuralFindings builds the dependency graph and reports dangling edges
// and cycles as error findings.
func structuralFindings(snap *store.Snapshot) []Finding {
	g, err := graph.Build(snap.Systems, snap.Dependencies)
	if err != nil {
		return []Finding{{
			Code:     "structural_integrity",
			Severity: SeverityError,
			Message:  err.Error(),
			Hint:     "remove the dangling dependency edge",
		}}
	}

	var findings []Finding
	for _, cycle := range g.DetectCycles() {
		findings = append(findings, Finding{
			Code:     "dependency_cycle",
			Severity: SeverityError,
			Message:  fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")),
			System:   cycle[0],
			Hint:     "break the cycle by removing one dependency edge",
		})
	}
	return findings
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
