// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the integrity-engine pipeline:
// corpus nodes, derived edges, temporal and entity indexes, semantic layers,
// and the diagnostics report that closes each indexing run.
package types

// NodeType identifies the domain a node belongs to.
type NodeType string

const (
	NodeTactic    NodeType = "tactic"
	NodeDoctrine  NodeType = "doctrine"
	NodeCaseStudy NodeType = "case-study"
	NodeLesson    NodeType = "lesson"
	NodeActor     NodeType = "actor"
	NodeEvent     NodeType = "event"
	NodeDocument  NodeType = "document"
)

// KnownNodeTypes lists the enumerated node domains in display order.
var KnownNodeTypes = []NodeType{
	NodeTactic, NodeDoctrine, NodeCaseStudy, NodeLesson, NodeActor, NodeEvent, NodeDocument,
}

// IsKnown reports whether t is one of the enumerated node domains.
func (t NodeType) IsKnown() bool {
	for _, k := range KnownNodeTypes {
		if t == k {
			return true
		}
	}
	return false
}

// NodeMetadata holds optional per-node attributes supplied by the content store.
type NodeMetadata struct {
	// Date is the node's timestamp as authored. It is parsed leniently by the
	// temporal indexer; an unparseable value simply yields no event.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// Node is a corpus record. Nodes are read-only inputs to the engine; every
// derived structure refers to them by ID.
type Node struct {
	// ID is the unique, immutable node identifier.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Type is the node's domain.
	Type NodeType `json:"type" yaml:"type"`

	Title   string `json:"title" yaml:"title"`
	Excerpt string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Themes are free-form topic tags.
	Themes []string `json:"themes,omitempty" yaml:"themes,omitempty"`

	// Anchors are the tags used for semantic linking. Two nodes sharing an
	// anchor are connected by an inferred edge.
	Anchors []string `json:"anchors,omitempty" yaml:"anchors,omitempty"`

	// LinksTo lists node IDs declared by the author, in declaration order.
	// Entries may name IDs absent from the corpus.
	LinksTo []string `json:"links_to,omitempty" yaml:"links_to,omitempty"`

	Metadata NodeMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	c := n
	c.Themes = append([]string(nil), n.Themes...)
	c.Anchors = append([]string(nil), n.Anchors...)
	c.LinksTo = append([]string(nil), n.LinksTo...)
	return c
}
