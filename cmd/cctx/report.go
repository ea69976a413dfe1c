package main

import (
	"fmt"
	"strings"

	"github.com/mabrax/cctx/internal/validate"
)

func formatReport(rep validate.Report) string {
	var b strings.Builder

	b.WriteString("Documentation Health\n")
	b.WriteString("====================\n")
	b.WriteString(fmt.Sprintf("Run:    %s\n", rep.RunID))
	b.WriteString(fmt.Sprintf("Status: %s\n", strings.ToUpper(string(rep.Status))))
	b.WriteString("\n")

	writeFindings(&b, "Errors", rep.Errors)
	writeFindings(&b, "Warnings", rep.Warnings)
	writeFindings(&b, "Info", rep.Infos)

	return b.String()
}

func writeFindings(b *strings.Builder, title string, findings []validate.Finding) {
	if len(findings) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("%s (%d)\n", title, len(findings)))
	for _, f := range findings {
		b.WriteString(fmt.Sprintf("- [%s] %s", f.Code, f.Message))
		if loc := findingLocation(f); loc != "" {
			b.WriteString(fmt.Sprintf(" (%s)", loc))
		}
		b.WriteString("\n")
		if f.Hint != "" {
			b.WriteString(fmt.Sprintf("  hint: %s\n", f.Hint))
		}
	}
	b.WriteString("\n")
}

func findingLocation(f validate.Finding) string {
	var parts []string
	if f.System != "" {
		parts = append(parts, f.System)
	}
	if f.ADR != "" {
		parts = append(parts, f.ADR)
	}
	if f.File != "" {
		parts = append(parts, f.File)
	}
	return strings.Join(parts, " ")
}
