// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Event sources.
const (
	EventSourceMetadata = "metadata"
	EventSourceContent  = "content"
)

// TemporalEvent is a dated occurrence attached to a node.
type TemporalEvent struct {
	NodeID    string    `json:"node_id" yaml:"node_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Label     string    `json:"label" yaml:"label"`

	// Source is "metadata" for the node's own date or "content" for a date
	// found in its text.
	Source string `json:"source" yaml:"source"`
}

// PatternOccurrence is one appearance of an anchor on the timeline.
type PatternOccurrence struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	NodeID    string    `json:"node_id" yaml:"node_id"`
}

// TemporalIndex is the output of the temporal indexer.
type TemporalIndex struct {
	// NodeTimeline maps node ID to that node's events in ascending time order.
	// Nodes without events have no key.
	NodeTimeline map[string][]TemporalEvent `json:"node_timeline" yaml:"node_timeline"`

	// PatternEvolution maps an anchor to its occurrences over time. Only
	// anchors seen on at least two distinct nodes appear.
	PatternEvolution map[string][]PatternOccurrence `json:"pattern_evolution" yaml:"pattern_evolution"`

	// Chronology is every event in the corpus in ascending time order.
	Chronology []TemporalEvent `json:"chronology" yaml:"chronology"`
}
