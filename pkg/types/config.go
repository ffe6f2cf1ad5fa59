package types

import "fmt"

// Design constants. They are calibration parameters rather than derived
// values, so each is overridable through EngineConfig.
const (
	DefaultRepairThreshold      = 0.6
	DefaultCrossDomainThreshold = 0.3
	DefaultMaxEditDistance      = 2
	DefaultRepairStringWeight   = 0.8
	DefaultRepairAnchorWeight   = 0.2
)

// TemporalConfig holds settings for the temporal indexer.
type TemporalConfig struct {
	// ScanContent adds events for ISO dates (YYYY-MM-DD) found in node content.
	ScanContent bool `json:"scan_content" yaml:"scan_content" mapstructure:"scan_content"`
}

// EntityConfig holds settings for entity resolution.
type EntityConfig struct {
	// MaxEditDistance is the largest edit distance between normalized surface
	// forms that still clusters them into one entity. Nil uses the default
	// of 2; zero clusters exact matches only.
	MaxEditDistance *int `json:"max_edit_distance" yaml:"max_edit_distance" mapstructure:"max_edit_distance"`
}

// SemanticConfig holds settings for the semantic analyzer.
type SemanticConfig struct {
	// CrossDomainThreshold is the inferred-edge weight a cross-type pair must
	// exceed to be reported. Nil uses the default of 0.3.
	CrossDomainThreshold *float64 `json:"cross_domain_threshold" yaml:"cross_domain_threshold" mapstructure:"cross_domain_threshold"`
}

// DiagnosticsConfig holds settings for the integrity audit and repair pass.
type DiagnosticsConfig struct {
	// RepairThreshold is the minimum candidate score accepted as a repair.
	// Nil uses the default of 0.6.
	RepairThreshold *float64 `json:"repair_threshold" yaml:"repair_threshold" mapstructure:"repair_threshold"`

	// StringWeight and AnchorWeight mix string similarity and anchor overlap
	// in the default repair scorer (defaults 0.8 and 0.2).
	StringWeight float64 `json:"string_weight" yaml:"string_weight" mapstructure:"string_weight"`
	AnchorWeight float64 `json:"anchor_weight" yaml:"anchor_weight" mapstructure:"anchor_weight"`
}

// EngineConfig groups the settings of every indexing stage.
type EngineConfig struct {
	Temporal    TemporalConfig    `json:"temporal" yaml:"temporal" mapstructure:"temporal"`
	Entity      EntityConfig      `json:"entity" yaml:"entity" mapstructure:"entity"`
	Semantic    SemanticConfig    `json:"semantic" yaml:"semantic" mapstructure:"semantic"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics" mapstructure:"diagnostics"`
}

// DefaultEngineConfig returns the engine's calibrated defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Entity:   EntityConfig{MaxEditDistance: Int(DefaultMaxEditDistance)},
		Semantic: SemanticConfig{CrossDomainThreshold: Float64(DefaultCrossDomainThreshold)},
		Diagnostics: DiagnosticsConfig{
			RepairThreshold: Float64(DefaultRepairThreshold),
			StringWeight:    DefaultRepairStringWeight,
			AnchorWeight:    DefaultRepairAnchorWeight,
		},
	}
}

// WithDefaults fills unset fields from DefaultEngineConfig. Explicit zeros
// are kept. The scorer weights count as unset only when both are zero.
func (c EngineConfig) WithDefaults() EngineConfig {
	if c.Entity.MaxEditDistance == nil {
		c.Entity.MaxEditDistance = Int(DefaultMaxEditDistance)
	}
	if c.Semantic.CrossDomainThreshold == nil {
		c.Semantic.CrossDomainThreshold = Float64(DefaultCrossDomainThreshold)
	}
	if c.Diagnostics.RepairThreshold == nil {
		c.Diagnostics.RepairThreshold = Float64(DefaultRepairThreshold)
	}
	if c.Diagnostics.StringWeight == 0 && c.Diagnostics.AnchorWeight == 0 {
		c.Diagnostics.StringWeight = DefaultRepairStringWeight
		c.Diagnostics.AnchorWeight = DefaultRepairAnchorWeight
	}
	return c
}

// Validate rejects negative thresholds, weights, and edit distances.
func (c EngineConfig) Validate() error {
	switch {
	case c.Entity.MaxEditDistance != nil && *c.Entity.MaxEditDistance < 0:
		return fmt.Errorf("entity.max_edit_distance must not be negative, got %d", *c.Entity.MaxEditDistance)
	case c.Semantic.CrossDomainThreshold != nil && *c.Semantic.CrossDomainThreshold < 0:
		return fmt.Errorf("semantic.cross_domain_threshold must not be negative, got %g", *c.Semantic.CrossDomainThreshold)
	case c.Diagnostics.RepairThreshold != nil && *c.Diagnostics.RepairThreshold < 0:
		return fmt.Errorf("diagnostics.repair_threshold must not be negative, got %g", *c.Diagnostics.RepairThreshold)
	case c.Diagnostics.StringWeight < 0 || c.Diagnostics.AnchorWeight < 0:
		return fmt.Errorf("diagnostics weights must not be negative")
	}
	return nil
}

// EditDistance returns MaxEditDistance or its default.
func (c EntityConfig) EditDistance() int {
	if c.MaxEditDistance == nil {
		return DefaultMaxEditDistance
	}
	return *c.MaxEditDistance
}

// Threshold returns CrossDomainThreshold or its default.
func (c SemanticConfig) Threshold() float64 {
	if c.CrossDomainThreshold == nil {
		return DefaultCrossDomainThreshold
	}
	return *c.CrossDomainThreshold
}

// Threshold returns RepairThreshold or its default.
func (c DiagnosticsConfig) Threshold() float64 {
	if c.RepairThreshold == nil {
		return DefaultRepairThreshold
	}
	return *c.RepairThreshold
}

// Float64 returns a pointer to v, for optional config fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional config fields.
func Int(v int) *int { return &v }

// StoreConfig holds settings for the SQLite content store.
type StoreConfig struct {
	// Dir is the base directory; the database lives at Dir/index/graph.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// SearchLimit is the default maximum number of search results (default 20).
	SearchLimit int `json:"search_limit" yaml:"search_limit" mapstructure:"search_limit"`
}

// CacheConfig holds settings for the on-disk result cache.
type CacheConfig struct {
	// Dir is the badger directory. Empty disables caching.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config is the full CLI configuration file layout.
type Config struct {
	Engine EngineConfig `json:"engine" yaml:"engine" mapstructure:"engine"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Cache  CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`
}
