package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DebtAuditor reviews each system's debt.md: active items must carry a
// priority and created date, stale items are flagged by priority, ids must
// not appear in both the active and resolved tables, and items whose
// referenced files changed since creation are surfaced as possibly resolved.
type DebtAuditor struct{}

func (DebtAuditor) Name() string { return "debt" }

func (DebtAuditor) Validate(ctx context.Context, vctx *Context) (Result, error) {
	res := Result{Validator: "debt"}

	var systems []string
	for _, sys := range vctx.Snapshot.Systems {
		systems = append(systems, sys.Path)
	}
	sort.Strings(systems)

	for _, sysPath := range systems {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := os.ReadFile(vctx.DocPath(sysPath, "debt.md"))
		if err != nil {
			continue
		}
		res.Findings = append(res.Findings, auditDebtDoc(ctx, vctx, sysPath, string(data))...)
	}
	return res, nil
}

func auditDebtDoc(ctx context.Context, vctx *Context, sysPath, content string) []Finding {
	var findings []Finding

	active, activeOK := TableAfterHeading(content, "Active")
	if !activeOK {
		tables := ExtractTables(content)
		if len(tables) > 0 {
			active, activeOK = tables[0], true
		}
	}
	resolved, resolvedOK := TableAfterHeading(content, "Resolved")

	if !activeOK || len(active.Rows) == 0 {
		findings = append(findings, Finding{
			Code:     "debt_empty",
			Severity: SeverityInfo,
			Message:  "no debt items tracked; verify this is intentional",
			System:   sysPath,
			File:     "debt.md",
		})
		return findings
	}

	resolvedIDs := make(map[string]bool)
	if resolvedOK {
		for _, row := range resolved.Rows {
			if id := stripRef(resolved.cell(row, "ID", "id", "Id")); id != "" {
				resolvedIDs[id] = true
			}
		}
	}

	now := vctx.Now().UTC()
	threshold := time.Duration(vctx.Config.Debt.AgeThresholdDays) * 24 * time.Hour

	for _, row := range active.Rows {
		id := stripRef(active.cell(row, "ID", "id", "Id"))
		if id == "" {
			id = "unknown"
		}
		priority := strings.ToLower(stripRef(active.cell(row, "Priority", "priority", "Severity", "severity")))
		createdStr := stripRef(active.cell(row, "Created", "created", "Date", "date"))
		filesStr := active.cell(row, "Files", "files", "File", "file")

		if priority == "" || createdStr == "" {
			findings = append(findings, Finding{
				Code:     "debt_malformed",
				Severity: SeverityError,
				Message:  fmt.Sprintf("debt item %s is missing a priority or created date", id),
				System:   sysPath,
				File:     "debt.md",
				Hint:     "fill in the Priority and Created columns",
			})
			continue
		}

		created, ok := ParseTimestamp(createdStr)
		if !ok {
			findings = append(findings, Finding{
				Code:     "debt_malformed",
				Severity: SeverityError,
				Message:  fmt.Sprintf("debt item %s has unparseable created date %q", id, createdStr),
				System:   sysPath,
				File:     "debt.md",
				Hint:     "use an ISO date in the Created column",
			})
			continue
		}

		if resolvedIDs[id] {
			findings = append(findings, Finding{
				Code:     "debt_duplicate",
				Severity: SeverityError,
				Message:  fmt.Sprintf("debt item %s appears in both the active and resolved tables", id),
				System:   sysPath,
				File:     "debt.md",
				Hint:     "remove the item from one of the tables",
			})
		}

		if age := now.Sub(created); age > threshold {
			days := int(age.Hours() / 24)
			if priority == "high" {
				findings = append(findings, Finding{
					Code:     "debt_aging",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("high-priority debt %s aging without resolution (%d days)", id, days),
					System:   sysPath,
					File:     "debt.md",
					Hint:     "resolve or re-triage the item",
				})
			} else {
				findings = append(findings, Finding{
					Code:     "debt_aging",
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("debt item %s older than %d days (%d days), consider review", id, vctx.Config.Debt.AgeThresholdDays, days),
					System:   sysPath,
					File:     "debt.md",
				})
			}
		}

		for _, ref := range extractFileRefs(filesStr) {
			full := filepath.Join(vctx.SystemDir(sysPath), filepath.FromSlash(ref))
			mtime, ok := vctx.MTimes.MTime(ctx, full)
			if ok && mtime.After(created) {
				findings = append(findings, Finding{
					Code:     "debt_possibly_resolved",
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("debt %s references %s which changed after the debt was created", id, ref),
					System:   sysPath,
					File:     "debt.md",
				})
			}
		}
	}
	return findings
}

// extractFileRefs splits a Files cell like "`a.go`, b.go; c.go" into paths.
func extractFileRefs(s string) []string {
	s = strings.ReplaceAll(s, "`", "")
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	var refs []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && strings.Contains(p, ".") {
			refs = append(refs, p)
		}
	}
	return refs
}
