// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EdgeKind distinguishes declared links from anchor-derived ones.
type EdgeKind string

const (
	EdgeExplicit EdgeKind = "explicit"
	EdgeInferred EdgeKind = "inferred"
)

// Edge is a derived connection between two nodes. Explicit edges carry
// weight 1.0; inferred edges carry the Jaccard overlap of the endpoints'
// anchor sets.
type Edge struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Kind   EdgeKind `json:"kind" yaml:"kind"`
	Weight float64  `json:"weight" yaml:"weight"`
}

// DanglingRef is a declared reference whose target is absent from the corpus.
type DanglingRef struct {
	SourceNodeID string `json:"source_node_id" yaml:"source_node_id"`
	OriginalID   string `json:"original_id" yaml:"original_id"`

	// Position is the index of the reference within the source's LinksTo.
	Position int `json:"position" yaml:"position"`
}

// LinkSet is the output of link resolution.
type LinkSet struct {
	Edges    []Edge        `json:"edges" yaml:"edges"`
	Dangling []DanglingRef `json:"dangling" yaml:"dangling"`

	// TotalReferences counts every declared LinksTo entry across the corpus,
	// valid or not.
	TotalReferences int `json:"total_references" yaml:"total_references"`
}

// Explicit returns the number of explicit edges.
func (l LinkSet) Explicit() int {
	n := 0
	for _, e := range l.Edges {
		if e.Kind == EdgeExplicit {
			n++
		}
	}
	return n
}

// Inferred returns the number of inferred edges.
func (l LinkSet) Inferred() int {
	return len(l.Edges) - l.Explicit()
}
