// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Approximate entity types assigned by mention extraction.
const (
	EntityPerson       = "person"
	EntityOrganization = "organization"
	EntityOperation    = "operation"
	EntityConcept      = "concept"
)

// Relationship types. The verb types come from sentence patterns linking two
// mentions; anchor-linked and co-occurrence are structural fallbacks.
const (
	RelationCoOccurrence = "co-occurrence"
	RelationAnchorLinked = "anchor-linked"
	RelationEnables      = "enables"
	RelationCounters     = "counters"
	RelationAmplifies    = "amplifies"
	RelationRequires     = "requires"
	RelationMirrors      = "mirrors"
)

// Mention is one textual occurrence of a candidate entity.
type Mention struct {
	NodeID      string `json:"node_id" yaml:"node_id"`
	SurfaceForm string `json:"surface_form" yaml:"surface_form"`
	EntityType  string `json:"entity_type" yaml:"entity_type"`
}

// Entity is a canonical referent consolidated from one or more mentions.
type Entity struct {
	// ID is derived from the canonical name, so it is stable across runs.
	ID          string    `json:"id" yaml:"id"`
	PrimaryName string    `json:"primary_name" yaml:"primary_name"`
	EntityType  string    `json:"entity_type" yaml:"entity_type"`
	Mentions    []Mention `json:"mentions" yaml:"mentions"`

	// Confidence is the fraction of mentions whose surface form equals
	// PrimaryName exactly.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Relationship links two entities that co-occur. EntityA sorts before EntityB.
type Relationship struct {
	EntityA      string `json:"entity_a" yaml:"entity_a"`
	EntityB      string `json:"entity_b" yaml:"entity_b"`
	RelationType string `json:"relation_type" yaml:"relation_type"`

	// SupportCount is the number of nodes in which both entities appear.
	SupportCount int `json:"support_count" yaml:"support_count"`

	// Evidence lists the supporting node IDs in corpus order.
	Evidence []string `json:"evidence" yaml:"evidence"`
}

// EntityResolution is the output of the entity resolver.
type EntityResolution struct {
	Entities      []Entity       `json:"entities" yaml:"entities"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
}
