// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// IndexingResult aggregates every stage's output for one run. It is built
// once by the orchestrator and never modified afterwards.
type IndexingResult struct {
	// Fingerprint identifies the input corpus (sha256 of its canonical form).
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	NodeCount   int    `json:"node_count" yaml:"node_count"`

	Links               LinkSet           `json:"links" yaml:"links"`
	TemporalIndex       TemporalIndex     `json:"temporal_index" yaml:"temporal_index"`
	EntityResolution    EntityResolution  `json:"entity_resolution" yaml:"entity_resolution"`
	SemanticAnalysis    SemanticAnalysis  `json:"semantic_analysis" yaml:"semantic_analysis"`
	EnhancedDiagnostics DiagnosticsReport `json:"enhanced_diagnostics" yaml:"enhanced_diagnostics"`
}
