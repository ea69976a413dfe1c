// Package validate holds the documentation-health validators: the finding
// model, a markdown table/section parser, the four validators, and the
// runner that executes them concurrently over one registry snapshot.
package validate

import (
	"github.com/google/uuid"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one observation about documentation health. Findings are
// values, never Go errors; a validator returning an error means the
// validator itself broke.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	System   string   `json:"system,omitempty"`
	ADR      string   `json:"adr,omitempty"`
	File     string   `json:"file,omitempty"`
	Fixable  bool     `json:"fixable,omitempty"`
	FixID    string   `json:"fix_id,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

// Result is the output of one validator run.
type Result struct {
	Validator string    `json:"validator"`
	Findings  []Finding `json:"findings"`
}

type Status string

const (
	StatusPass             Status = "pass"
	StatusFail             Status = "fail"
	StatusPassWithWarnings Status = "pass_with_warnings"
)

// Report aggregates findings from a whole run, split by severity.
type Report struct {
	RunID    string    `json:"run_id"`
	Status   Status    `json:"status"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Infos    []Finding `json:"infos,omitempty"`
}

// BuildReport splits findings by severity and derives the overall status.
// Any error finding fails the run; warnings alone downgrade a pass.
func BuildReport(findings []Finding) Report {
	rep := Report{RunID: uuid.NewString()}
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			rep.Errors = append(rep.Errors, f)
		case SeverityWarning:
			rep.Warnings = append(rep.Warnings, f)
		default:
			rep.Infos = append(rep.Infos, f)
		}
	}
	switch {
	case len(rep.Errors) > 0:
		rep.Status = StatusFail
	case len(rep.Warnings) > 0:
		rep.Status = StatusPassWithWarnings
	default:
		rep.Status = StatusPass
	}
	return rep
}
