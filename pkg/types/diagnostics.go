// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Density labels for ConnectionDensity.
const (
	DensitySparse   = "sparse"
	DensityModerate = "moderate"
	DensityDense    = "dense"
)

// Repair records an automatic rewrite of a dangling reference. It is a
// proposal for the content store; the engine never applies it.
type Repair struct {
	SourceNodeID string  `json:"source_node_id" yaml:"source_node_id"`
	OriginalID   string  `json:"original_id" yaml:"original_id"`
	RepairedID   string  `json:"repaired_id" yaml:"repaired_id"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
}

// BrokenLink is a dangling reference that no candidate could repair.
type BrokenLink struct {
	SourceNodeID string `json:"source_node_id" yaml:"source_node_id"`
	OriginalID   string `json:"original_id" yaml:"original_id"`

	// BestCandidate and BestScore describe the closest rejected match, if any.
	BestCandidate string  `json:"best_candidate,omitempty" yaml:"best_candidate,omitempty"`
	BestScore     float64 `json:"best_score" yaml:"best_score"`
}

// DiagnosticsReport is the terminal artifact of an indexing run.
type DiagnosticsReport struct {
	// IntegrityScore is 100 × (1 − unresolved / total references).
	IntegrityScore float64 `json:"integrity_score" yaml:"integrity_score"`

	// ConnectionDensity is accepted edges over possible node pairs.
	ConnectionDensity float64 `json:"connection_density" yaml:"connection_density"`
	DensityLabel      string  `json:"density_label" yaml:"density_label"`

	TotalReferences int `json:"total_references" yaml:"total_references"`
	ValidReferences int `json:"valid_references" yaml:"valid_references"`

	Repairs     []Repair     `json:"repairs" yaml:"repairs"`
	BrokenLinks []BrokenLink `json:"broken_links" yaml:"broken_links"`

	// IsolatedNodes have no edges and belong to no semantic layer.
	IsolatedNodes []string `json:"isolated_nodes" yaml:"isolated_nodes"`

	// LayerCoverage is the fraction of nodes that belong to some layer.
	LayerCoverage float64 `json:"layer_coverage" yaml:"layer_coverage"`
}

// BrokenIDs returns the unresolved dangling IDs in report order.
func (r DiagnosticsReport) BrokenIDs() []string {
	ids := make([]string, len(r.BrokenLinks))
	for i, b := range r.BrokenLinks {
		ids[i] = b.OriginalID
	}
	return ids
}
