package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mabrax/cctx/internal/store"
)

// ADRValidator checks decision-record consistency: every registered ADR has
// its file, every link points at a registered system, supersession chains
// are symmetric and acyclic, the decisions.md indexes match the registry,
// and on-disk ADR files are all registered.
type ADRValidator struct{}

func (ADRValidator) Name() string { return "adr" }

func (ADRValidator) Validate(ctx context.Context, vctx *Context) (Result, error) {
	res := Result{Validator: "adr"}

	adrs := make([]store.ADR, len(vctx.Snapshot.ADRs))
	copy(adrs, vctx.Snapshot.ADRs)
	sort.Slice(adrs, func(i, j int) bool { return adrs[i].ID < adrs[j].ID })

	for _, adr := range adrs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Findings = append(res.Findings, checkADRFile(vctx, adr)...)
		res.Findings = append(res.Findings, checkADRLinks(vctx, adr)...)
		res.Findings = append(res.Findings, checkSupersession(vctx, adr)...)
	}

	res.Findings = append(res.Findings, checkSupersessionCycles(vctx, adrs)...)
	res.Findings = append(res.Findings, checkUnregisteredFiles(vctx)...)
	res.Findings = append(res.Findings, checkDecisionIndexes(vctx)...)

	return res, nil
}

func checkADRFile(vctx *Context, adr store.ADR) []Finding {
	full := filepath.Join(vctx.Root, filepath.FromSlash(adr.FilePath))
	if _, err := os.Stat(full); err != nil {
		return []Finding{{
			Code:     "broken_reference",
			Severity: SeverityError,
			Message:  fmt.Sprintf("ADR %s registered but file not found at %s", adr.ID, adr.FilePath),
			ADR:      adr.ID,
			File:     adr.FilePath,
			Hint:     "restore the file or remove the registry entry",
		}}
	}
	return nil
}

func checkADRLinks(vctx *Context, adr store.ADR) []Finding {
	var findings []Finding
	for _, link := range vctx.Snapshot.Links {
		if link.ADRID != adr.ID {
			continue
		}
		if _, ok := vctx.Snapshot.SystemByPath(link.SystemPath); !ok {
			findings = append(findings, Finding{
				Code:     "orphaned_adr",
				Severity: SeverityError,
				Message:  fmt.Sprintf("ADR %s linked to nonexistent system %q", adr.ID, link.SystemPath),
				ADR:      adr.ID,
				System:   link.SystemPath,
				Hint:     "re-link the ADR or register the system",
			})
		}
	}
	return findings
}

// checkSupersession verifies both halves of the supersession reference: the
// other ADR exists and carries the matching back-reference.
func checkSupersession(vctx *Context, adr store.ADR) []Finding {
	var findings []Finding

	if adr.SupersededBy != "" {
		successor, ok := vctx.Snapshot.ADRByID(adr.SupersededBy)
		switch {
		case !ok:
			findings = append(findings, Finding{
				Code:     "supersession_chain",
				Severity: SeverityError,
				Message:  fmt.Sprintf("ADR %s superseded by %s which is not registered", adr.ID, adr.SupersededBy),
				ADR:      adr.ID,
				Hint:     "register the superseding ADR or clear the reference",
			})
		case successor.Supersedes != adr.ID:
			findings = append(findings, Finding{
				Code:     "supersession_asymmetry",
				Severity: SeverityError,
				Message:  fmt.Sprintf("ADR %s claims supersession by %s but %s does not reference it back", adr.ID, adr.SupersededBy, adr.SupersededBy),
				ADR:      adr.ID,
				Hint:     "repair the supersession pair",
			})
		}
		if adr.Status != store.StatusSuperseded {
			findings = append(findings, Finding{
				Code:     "supersession_chain",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("ADR %s has a superseding ADR but status %q", adr.ID, adr.Status),
				ADR:      adr.ID,
				Hint:     "set the status to superseded",
			})
		}
	}

	if adr.Supersedes != "" {
		predecessor, ok := vctx.Snapshot.ADRByID(adr.Supersedes)
		switch {
		case !ok:
			findings = append(findings, Finding{
				Code:     "supersession_chain",
				Severity: SeverityError,
				Message:  fmt.Sprintf("ADR %s supersedes %s which is not registered", adr.ID, adr.Supersedes),
				ADR:      adr.ID,
				Hint:     "register the superseded ADR or clear the reference",
			})
		case predecessor.SupersededBy != adr.ID:
			findings = append(findings, Finding{
				Code:     "supersession_asymmetry",
				Severity: SeverityError,
				Message:  fmt.Sprintf("ADR %s claims to supersede %s but %s does not reference it back", adr.ID, adr.Supersedes, adr.Supersedes),
				ADR:      adr.ID,
				Hint:     "repair the supersession pair",
			})
		}
	}

	return findings
}

// checkSupersessionCycles walks superseded_by chains; a chain that revisits
// an ADR is reported once, at its lowest id.
func checkSupersessionCycles(vctx *Context, adrs []store.ADR) []Finding {
	var findings []Finding
	reported := make(map[string]bool)

	for _, adr := range adrs {
		if reported[adr.ID] {
			continue
		}
		seen := map[string]bool{}
		cur := adr.ID
		for cur != "" && !seen[cur] {
			seen[cur] = true
			next, ok := vctx.Snapshot.ADRByID(cur)
			if !ok {
				break
			}
			cur = next.SupersededBy
		}
		if cur != "" && seen[cur] {
			var chain []string
			for id := range seen {
				chain = append(chain, id)
				reported[id] = true
			}
			sort.Strings(chain)
			findings = append(findings, Finding{
				Code:     "supersession_cycle",
				Severity: SeverityError,
				Message:  fmt.Sprintf("supersession chain forms a cycle: %s", strings.Join(chain, " -> ")),
				ADR:      chain[0],
				Hint:     "break the cycle by clearing one superseded_by reference",
			})
		}
	}
	return findings
}

// checkUnregisteredFiles scans adr/ directories for decision files the
// registry does not know about. Fixable: the row can be recovered from the
// file itself.
func checkUnregisteredFiles(vctx *Context) []Finding {
	var findings []Finding

	known := make(map[string]bool, len(vctx.Snapshot.ADRs))
	for _, adr := range vctx.Snapshot.ADRs {
		known[adr.ID] = true
	}

	for _, dir := range adrDirectories(vctx) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, "ADR-") || !strings.HasSuffix(name, ".md") {
				continue
			}
			id := adrIDFromFilename(name)
			if id == "" || known[id] {
				continue
			}
			rel, err := filepath.Rel(vctx.Root, filepath.Join(dir, name))
			if err != nil {
				rel = name
			}
			rel = filepath.ToSlash(rel)
			findings = append(findings, Finding{
				Code:     "unregistered_adr",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("ADR %s exists as file but is not registered", id),
				ADR:      id,
				File:     rel,
				Fixable:  true,
				FixID:    "unregistered_adr",
				Hint:     "apply the unregistered_adr fix to register it from the file",
			})
		}
	}
	return findings
}

// checkDecisionIndexes compares each system's decisions.md index table with
// the registry: indexed ids must exist, statuses must match, and every
// linked ADR should appear in the index.
func checkDecisionIndexes(vctx *Context) []Finding {
	var findings []Finding

	var systems []string
	for _, sys := range vctx.Snapshot.Systems {
		systems = append(systems, sys.Path)
	}
	sort.Strings(systems)

	for _, sysPath := range systems {
		data, err := os.ReadFile(vctx.DocPath(sysPath, "decisions.md"))
		if err != nil {
			continue
		}
		table, ok := TableAfterHeading(string(data), "ADR")
		if !ok {
			tables := ExtractTables(string(data))
			if len(tables) == 0 {
				continue
			}
			table = tables[0]
		}

		indexed := make(map[string]string) // id -> indexed status
		for _, row := range table.Rows {
			id := stripRef(table.cell(row, "ADR", "adr", "ID", "id"))
			if id == "" {
				continue
			}
			indexed[id] = strings.ToLower(stripRef(table.cell(row, "Status", "status")))
		}

		indexedIDs := make([]string, 0, len(indexed))
		for id := range indexed {
			indexedIDs = append(indexedIDs, id)
		}
		sort.Strings(indexedIDs)

		for _, id := range indexedIDs {
			adr, ok := vctx.Snapshot.ADRByID(id)
			if !ok {
				findings = append(findings, Finding{
					Code:     "broken_reference",
					Severity: SeverityError,
					Message:  fmt.Sprintf("decisions.md references %s but it is not registered", id),
					System:   sysPath,
					ADR:      id,
					File:     "decisions.md",
					Hint:     "remove the index entry or register the ADR",
				})
				continue
			}
			if status := indexed[id]; status != "" && status != adr.Status {
				findings = append(findings, Finding{
					Code:     "index_desync",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("decisions.md lists %s as %q but registry has %q", id, status, adr.Status),
					System:   sysPath,
					ADR:      id,
					File:     "decisions.md",
					Hint:     "update the index status",
				})
			}
		}

		for _, link := range vctx.Snapshot.Links {
			if link.SystemPath != sysPath {
				continue
			}
			if _, ok := indexed[link.ADRID]; !ok {
				findings = append(findings, Finding{
					Code:     "index_desync",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("ADR %s is linked to this system but missing from decisions.md", link.ADRID),
					System:   sysPath,
					ADR:      link.ADRID,
					File:     "decisions.md",
					Hint:     "add the ADR to the index table",
				})
			}
		}
	}
	return findings
}

// adrDirectories lists every adr/ directory: one per system bundle plus the
// project-level one, if present.
func adrDirectories(vctx *Context) []string {
	var dirs []string
	for _, sys := range vctx.Snapshot.Systems {
		dirs = append(dirs, filepath.Join(vctx.SystemDir(sys.Path), vctx.Config.CtxDir, "adr"))
	}
	dirs = append(dirs, filepath.Join(vctx.Root, vctx.Config.CtxDir, "adr"))
	sort.Strings(dirs)
	return dirs
}

// adrIDFromFilename extracts "ADR-001" from "ADR-001-short-title.md".
func adrIDFromFilename(name string) string {
	rest := strings.TrimPrefix(name, "ADR-")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return ""
	}
	return "ADR-" + rest[:end]
}
