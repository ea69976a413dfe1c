package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the serialized dependency graph written to disk. GeneratedAt
// is the store watermark rather than wall clock, so regenerating against an
// unchanged registry produces byte-identical output.
type Artifact struct {
	Systems     []ArtifactNode `json:"systems"`
	Edges       []ArtifactEdge `json:"edges"`
	GeneratedAt string         `json:"generated_at"`
}

type ArtifactNode struct {
	Path         string   `json:"path"`
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

type ArtifactEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewArtifact serializes the graph. Nodes and edges come out in sorted
// order; output is deterministic for a given graph and watermark.
func NewArtifact(g *Graph, watermark time.Time) Artifact {
	art := Artifact{
		Systems:     make([]ArtifactNode, 0, len(g.nodes)),
		Edges:       make([]ArtifactEdge, 0, len(g.edges)),
		GeneratedAt: watermark.UTC().Format(time.RFC3339Nano),
	}
	for _, path := range g.nodes {
		art.Systems = append(art.Systems, ArtifactNode{
			Path:         path,
			Name:         g.names[path],
			Dependencies: append([]string{}, g.dependsOn[path]...),
			Dependents:   append([]string{}, g.dependents[path]...),
		})
	}
	for _, e := range g.edges {
		art.Edges = append(art.Edges, ArtifactEdge{From: e.SystemPath, To: e.DependsOn})
	}
	return art
}

func (a Artifact) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (a Artifact) WriteFile(path string) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return Artifact{}, err
	}
	return art, nil
}
