// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SemanticLayer is a cluster of nodes sharing a dominant anchor.
type SemanticLayer struct {
	// LayerType is the members' most frequent theme, or the anchor when the
	// members carry no themes.
	LayerType string `json:"layer_type" yaml:"layer_type"`

	// Anchor is the dominant anchor that defines membership.
	Anchor string `json:"anchor" yaml:"anchor"`

	// Concepts is the sorted union of the members' anchors.
	Concepts []string `json:"concepts" yaml:"concepts"`

	// MemberNodeIDs holds at least two node IDs, in corpus order.
	MemberNodeIDs []string `json:"member_node_ids" yaml:"member_node_ids"`

	// Cohesion is the summed weight of edges between members divided by the
	// number of member pairs.
	Cohesion float64 `json:"cohesion" yaml:"cohesion"`
}

// CrossDomainLink is a strong inferred connection between nodes of
// different types.
type CrossDomainLink struct {
	SourceNodeID string   `json:"source_node_id" yaml:"source_node_id"`
	TargetNodeID string   `json:"target_node_id" yaml:"target_node_id"`
	SourceType   NodeType `json:"source_type" yaml:"source_type"`
	TargetType   NodeType `json:"target_type" yaml:"target_type"`
	Score        float64  `json:"score" yaml:"score"`
}

// SemanticAnalysis is the output of the semantic analyzer.
type SemanticAnalysis struct {
	SemanticLayers       []SemanticLayer   `json:"semantic_layers" yaml:"semantic_layers"`
	CrossDomainKnowledge []CrossDomainLink `json:"cross_domain_knowledge" yaml:"cross_domain_knowledge"`
}
