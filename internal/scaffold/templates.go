package scaffold

// Bundle documents created for every registered system. The adr/ directory
// is created alongside them, empty.
var bundleTemplates = map[string]string{
	"snapshot": `# {{.Name}} — Snapshot

> System overview. Keep the tables below in sync with the registry.

## Purpose

Describe what {{.Name}} does and why it exists.

## Files

| File | Role |
| ---- | ---- |

## Dependencies

| System | Why |
| ------ | --- |

## Dependents

| System | Why |
| ------ | --- |
`,
	"constraints": `# {{.Name}} — Constraints

Invariants and boundaries this system must preserve.

-
`,
	"decisions": `# {{.Name}} — Decisions

Index of Architecture Decision Records for this system.

| ADR | Title | Status |
| --- | ----- | ------ |
`,
	"debt": `# {{.Name}} — Technical Debt

## Active

| ID | Description | Priority | Created | Files |
| -- | ----------- | -------- | ------- | ----- |

## Resolved

| ID | Description | Resolved |
| -- | ----------- | -------- |
`,
	"adr": `# {{.ID}}: {{.Title}}

**Status**: {{.Status}}

## Context

{{.Context}}

## Decision

{{.Decision}}

## Consequences

{{.Consequences}}
`,
}
