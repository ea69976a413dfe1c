package store

import "time"

const SchemaVersion = 1

// ADR lifecycle statuses.
const (
	StatusProposed   = "proposed"
	StatusAccepted   = "accepted"
	StatusDeprecated = "deprecated"
	StatusSuperseded = "superseded"
)

// System is a registered code module tracked by a documentation bundle on
// disk. The bundle is referenced by Path, never stored as content.
type System struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Dependency is a directed edge: SystemPath depends on DependsOn.
type Dependency struct {
	SystemPath string `json:"system_path"`
	DependsOn  string `json:"depends_on"`
}

// ADR is an Architecture Decision Record: a versioned markdown file plus
// registry metadata. Supersedes/SupersededBy are weak id references.
type ADR struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	FilePath     string    `json:"file_path"`
	Context      string    `json:"context,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	Consequences string    `json:"consequences,omitempty"`
	Supersedes   string    `json:"supersedes,omitempty"`
	SupersededBy string    `json:"superseded_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Link ties an ADR to a system. An ADR with zero links is a global decision.
type Link struct {
	ADRID      string `json:"adr_id"`
	SystemPath string `json:"system_path"`
}

// Tag is a free-form label on an ADR.
type Tag struct {
	ADRID string `json:"adr_id"`
	Tag   string `json:"tag"`
}

// Snapshot is one consistent view of the whole registry, read inside a
// single transaction. Validators operate on snapshots, never on live reads.
type Snapshot struct {
	Systems      []System
	Dependencies []Dependency
	ADRs         []ADR
	Links        []Link
	Tags         []Tag
}

// SystemByPath indexes the snapshot's systems.
func (s *Snapshot) SystemByPath(path string) (System, bool) {
	for _, sys := range s.Systems {
		if sys.Path == path {
			return sys, true
		}
	}
	return System{}, false
}

// ADRByID indexes the snapshot's ADRs.
func (s *Snapshot) ADRByID(id string) (ADR, bool) {
	for _, adr := range s.ADRs {
		if adr.ID == id {
			return adr, true
		}
	}
	return ADR{}, false
}

// Watermark returns the latest updated_at across the snapshot's systems and
// ADRs. Zero when the registry is empty.
func (s *Snapshot) Watermark() time.Time {
	var max time.Time
	for _, sys := range s.Systems {
		if sys.UpdatedAt.After(max) {
			max = sys.UpdatedAt
		}
	}
	for _, adr := range s.ADRs {
		if adr.UpdatedAt.After(max) {
			max = adr.UpdatedAt
		}
	}
	return max
}

// DependenciesOf returns the declared dependencies of one system, sorted.
func (s *Snapshot) DependenciesOf(path string) []string {
	var deps []string
	for _, d := range s.Dependencies {
		if d.SystemPath == path {
			deps = append(deps, d.DependsOn)
		}
	}
	return deps
}
