package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabrax/cctx/internal/config"
	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/store"
)

type fakeLoader struct {
	snap *store.Snapshot
	err  error
}

func (f fakeLoader) LoadSnapshot(context.Context) (*store.Snapshot, error) {
	return f.snap, f.err
}

type stubValidator struct {
	name     string
	findings []Finding
	sleep    time.Duration
	panics   bool
	err      error
	ran      *bool
}

func (s stubValidator) Name() string { return s.name }

func (s stubValidator) Validate(_ context.Context, _ *Context) (Result, error) {
	if s.ran != nil {
		*s.ran = true
	}
	if s.panics {
		panic("boom")
	}
	if s.sleep > 0 {
		time.Sleep(s.sleep)
	}
	return Result{Validator: s.name, Findings: s.findings}, s.err
}

func newTestRunner(snap *store.Snapshot, validators ...Validator) *Runner {
	r := NewRunner(fakeLoader{snap: snap}, "/tmp/nonexistent-root", config.Default(), fakeMTimes{})
	if len(validators) > 0 {
		r.validators = validators
	}
	return r
}

func TestRunnerAbortsOnSnapshotFailure(t *testing.T) {
	loadErr := cctxerr.New(cctxerr.CodeInfrastructure, "db gone")
	r := NewRunner(fakeLoader{err: loadErr}, t.TempDir(), config.Default(), fakeMTimes{})

	_, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeInfrastructure))
}

func TestRunnerRejectsUnknownValidator(t *testing.T) {
	r := newTestRunner(&store.Snapshot{})
	_, err := r.Run(context.Background(), Options{Validators: []string{"nonexistent"}})
	assert.True(t, cctxerr.IsCode(err, cctxerr.CodeValidationError))
}

func TestRunnerIsolatesPanic(t *testing.T) {
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "boom", panics: true},
		stubValidator{name: "ok", findings: []Finding{{Code: "x", Severity: SeverityInfo, Message: "fine"}}},
	)

	rep, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusFail, rep.Status)

	crashed := findingsWithCode(rep.Errors, "validator_crashed")
	require.Len(t, crashed, 1)
	assert.Contains(t, crashed[0].Message, "boom")

	// The survivor's findings still made it into the report.
	require.Len(t, rep.Infos, 1)
	assert.Equal(t, "x", rep.Infos[0].Code)
}

func TestRunnerIsolatesError(t *testing.T) {
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "bad", err: errors.New("io exploded")},
	)

	rep, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)

	crashed := findingsWithCode(rep.Errors, "validator_crashed")
	require.Len(t, crashed, 1)
	assert.Contains(t, crashed[0].Message, "io exploded")
}

func TestRunnerTimeoutDowngradesToWarning(t *testing.T) {
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "slow", sleep: time.Second},
	)
	r.cfg = config.Default()
	r.cfg.Runner.Timeout = 20 * time.Millisecond

	rep, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusPassWithWarnings, rep.Status)

	timedOut := findingsWithCode(rep.Warnings, "timed_out")
	require.Len(t, timedOut, 1)
	assert.Contains(t, timedOut[0].Message, "slow")
}

func TestRunnerPreCommitSelection(t *testing.T) {
	var ranSnapshot, ranADR, ranDebt, ranFreshness bool
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "snapshot", ran: &ranSnapshot},
		stubValidator{name: "adr", ran: &ranADR},
		stubValidator{name: "debt", ran: &ranDebt},
		stubValidator{name: "freshness", ran: &ranFreshness},
	)

	_, err := r.Run(context.Background(), Options{PreCommit: true})
	require.NoError(t, err)
	assert.True(t, ranSnapshot)
	assert.True(t, ranADR)
	assert.False(t, ranDebt)
	assert.False(t, ranFreshness)
}

func TestRunnerDeepAddsFreshness(t *testing.T) {
	var ranFreshness bool
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "snapshot"},
		stubValidator{name: "adr"},
		stubValidator{name: "debt"},
		stubValidator{name: "freshness", ran: &ranFreshness},
	)

	_, err := r.Run(context.Background(), Options{Validators: []string{"snapshot"}, Deep: true})
	require.NoError(t, err)
	assert.True(t, ranFreshness)
}

func TestRunnerDeepDetectsCycleEndToEnd(t *testing.T) {
	now := time.Now().UTC()
	snap := &store.Snapshot{
		Systems: []store.System{
			system("src/a", "A", now),
			system("src/b", "B", now),
			system("src/c", "C", now),
		},
		Dependencies: []store.Dependency{
			{SystemPath: "src/a", DependsOn: "src/b"},
			{SystemPath: "src/b", DependsOn: "src/c"},
			{SystemPath: "src/c", DependsOn: "src/a"},
		},
	}
	r := newTestRunner(snap, stubValidator{name: "adr"}, stubValidator{name: "freshness"})

	rep, err := r.Run(context.Background(), Options{Validators: []string{"adr"}, Deep: true})
	require.NoError(t, err)
	assert.Equal(t, StatusFail, rep.Status)

	cycles := findingsWithCode(rep.Errors, "dependency_cycle")
	require.Len(t, cycles, 1)
	assert.Contains(t, cycles[0].Message, "src/a")
	assert.Contains(t, cycles[0].Message, "src/b")
	assert.Contains(t, cycles[0].Message, "src/c")
}

func TestRunnerMergesInDeclarationOrder(t *testing.T) {
	r := newTestRunner(&store.Snapshot{},
		stubValidator{name: "first", findings: []Finding{{Code: "f1", Severity: SeverityWarning, Message: "1"}}},
		stubValidator{name: "second", sleep: 10 * time.Millisecond, findings: []Finding{{Code: "f2", Severity: SeverityWarning, Message: "2"}}},
		stubValidator{name: "third", findings: []Finding{{Code: "f3", Severity: SeverityWarning, Message: "3"}}},
	)

	rep, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 3)
	assert.Equal(t, "f1", rep.Warnings[0].Code)
	assert.Equal(t, "f2", rep.Warnings[1].Code)
	assert.Equal(t, "f3", rep.Warnings[2].Code)
}

func TestBuildReportStatus(t *testing.T) {
	rep := BuildReport(nil)
	assert.Equal(t, StatusPass, rep.Status)
	assert.NotEmpty(t, rep.RunID)

	rep = BuildReport([]Finding{{Severity: SeverityWarning}})
	assert.Equal(t, StatusPassWithWarnings, rep.Status)

	rep = BuildReport([]Finding{{Severity: SeverityWarning}, {Severity: SeverityError}})
	assert.Equal(t, StatusFail, rep.Status)
}
