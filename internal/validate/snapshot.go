package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SnapshotValidator checks each system's snapshot.md against the registry:
// the document exists, its Files table names real files, and its declared
// dependencies match the recorded edges in both directions.
type SnapshotValidator struct{}

func (SnapshotValidator) Name() string { return "snapshot" }

func (SnapshotValidator) Validate(ctx context.Context, vctx *Context) (Result, error) {
	res := Result{Validator: "snapshot"}

	var systems []string
	for _, sys := range vctx.Snapshot.Systems {
		systems = append(systems, sys.Path)
	}
	sort.Strings(systems)

	for _, sysPath := range systems {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		docPath := vctx.DocPath(sysPath, "snapshot.md")
		data, err := os.ReadFile(docPath)
		if err != nil {
			res.Findings = append(res.Findings, Finding{
				Code:     "missing_snapshot",
				Severity: SeverityError,
				Message:  "snapshot.md not found in context directory",
				System:   sysPath,
				File:     filepath.ToSlash(filepath.Join(sysPath, vctx.Config.CtxDir, "snapshot.md")),
				Fixable:  true,
				FixID:    "missing_snapshot",
				Hint:     "apply the missing_snapshot fix to scaffold the document",
			})
			continue
		}
		content := string(data)

		res.Findings = append(res.Findings, checkFilesTable(vctx, sysPath, content)...)
		res.Findings = append(res.Findings, checkDeclaredDependencies(vctx, sysPath, content)...)
	}
	return res, nil
}

// checkFilesTable flags Files-table entries that do not exist on disk.
func checkFilesTable(vctx *Context, sysPath, content string) []Finding {
	table, ok := TableAfterHeading(content, "Files")
	if !ok {
		return nil
	}

	var findings []Finding
	for _, row := range table.Rows {
		ref := stripRef(table.cell(row, "File", "Path", "file", "path", "Name", "name"))
		if ref == "" {
			continue
		}
		full := filepath.Join(vctx.SystemDir(sysPath), filepath.FromSlash(ref))
		if _, err := os.Stat(full); err != nil {
			findings = append(findings, Finding{
				Code:     "missing_file",
				Severity: SeverityError,
				Message:  fmt.Sprintf("file %q listed in snapshot.md but not found", ref),
				System:   sysPath,
				File:     "snapshot.md",
				Hint:     "remove the entry or restore the file",
			})
		}
	}
	return findings
}

// checkDeclaredDependencies diffs the Dependencies table against the
// registry edges in both directions. A declared dependency naming a system
// the registry has never seen is a distinct finding from a mere mismatch.
func checkDeclaredDependencies(vctx *Context, sysPath, content string) []Finding {
	declared := declaredDependencies(content)

	recorded := make(map[string]bool)
	for _, dep := range vctx.Snapshot.DependenciesOf(sysPath) {
		recorded[dep] = true
	}

	var findings []Finding

	declaredSorted := make([]string, 0, len(declared))
	for dep := range declared {
		declaredSorted = append(declaredSorted, dep)
	}
	sort.Strings(declaredSorted)

	for _, dep := range declaredSorted {
		if recorded[dep] {
			continue
		}
		if _, known := vctx.Snapshot.SystemByPath(dep); !known {
			findings = append(findings, Finding{
				Code:     "unknown_system",
				Severity: SeverityError,
				Message:  fmt.Sprintf("declared dependency %q is not a registered system", dep),
				System:   sysPath,
				File:     "snapshot.md",
				Hint:     "register the system or remove the declaration",
			})
			continue
		}
		findings = append(findings, Finding{
			Code:     "unresolved_dependency",
			Severity: SeverityError,
			Message:  fmt.Sprintf("dependency %q declared in snapshot.md but not recorded in the registry", dep),
			System:   sysPath,
			File:     "snapshot.md",
			Hint:     "record the dependency edge or remove the declaration",
		})
	}

	recordedSorted := make([]string, 0, len(recorded))
	for dep := range recorded {
		recordedSorted = append(recordedSorted, dep)
	}
	sort.Strings(recordedSorted)

	for _, dep := range recordedSorted {
		if !declared[dep] {
			findings = append(findings, Finding{
				Code:     "unresolved_dependency",
				Severity: SeverityError,
				Message:  fmt.Sprintf("dependency %q recorded in the registry but not declared in snapshot.md", dep),
				System:   sysPath,
				File:     "snapshot.md",
				Hint:     "declare the dependency in the Dependencies table",
			})
		}
	}

	return findings
}

// declaredDependencies reads the Dependencies table of a snapshot document.
// External references (packages, file paths, free text) are skipped.
func declaredDependencies(content string) map[string]bool {
	declared := make(map[string]bool)
	table, ok := TableAfterHeading(content, "Dependencies")
	if !ok {
		return declared
	}
	for _, row := range table.Rows {
		ref := stripRef(table.cell(row, "System", "Path", "system", "path", "Name", "name"))
		if ref == "" || externalRef(ref) {
			continue
		}
		declared[ref] = true
	}
	return declared
}
