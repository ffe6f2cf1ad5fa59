// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records indexing runs as Prometheus metrics on a private
// registry. The Collector plugs into the engine as an observer; CLI runs
// write the registry to a node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Namespace prefixes every metric name.
const Namespace = "integrity_engine"

// Collector holds the indexing metrics.
type Collector struct {
	registry *prometheus.Registry

	Runs          prometheus.Counter
	StageDuration *prometheus.HistogramVec

	IntegrityScore    prometheus.Gauge
	ConnectionDensity prometheus.Gauge
	Nodes             prometheus.Gauge
	Edges             *prometheus.GaugeVec
	Entities          prometheus.Gauge
	Layers            prometheus.Gauge

	Repairs     prometheus.Counter
	BrokenLinks prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Total number of completed indexing runs",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Indexing stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		IntegrityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "integrity_score",
			Help:      "Integrity score of the last run (0-100)",
		}),
		ConnectionDensity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connection_density",
			Help:      "Connection density of the last run",
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "nodes",
			Help:      "Nodes indexed in the last run",
		}),
		Edges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "edges",
			Help:      "Edges resolved in the last run",
		}, []string{"kind"}),
		Entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "entities",
			Help:      "Entities resolved in the last run",
		}),
		Layers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "semantic_layers",
			Help:      "Semantic layers formed in the last run",
		}),
		Repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "repairs_total",
			Help:      "Total dangling references repaired",
		}),
		BrokenLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broken_links_total",
			Help:      "Total dangling references left unresolved",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Total result cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Total result cache misses",
		}),
	}

	registry.MustRegister(
		c.Runs, c.StageDuration,
		c.IntegrityScore, c.ConnectionDensity, c.Nodes, c.Edges, c.Entities, c.Layers,
		c.Repairs, c.BrokenLinks, c.CacheHits, c.CacheMisses,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StageCompleted records a stage duration.
func (c *Collector) StageCompleted(stage string, d time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunCompleted records the outcome of a run.
func (c *Collector) RunCompleted(result *types.IndexingResult) {
	diag := result.EnhancedDiagnostics
	c.Runs.Inc()
	c.IntegrityScore.Set(diag.IntegrityScore)
	c.ConnectionDensity.Set(diag.ConnectionDensity)
	c.Nodes.Set(float64(result.NodeCount))
	c.Edges.WithLabelValues(string(types.EdgeExplicit)).Set(float64(result.Links.Explicit()))
	c.Edges.WithLabelValues(string(types.EdgeInferred)).Set(float64(result.Links.Inferred()))
	c.Entities.Set(float64(len(result.EntityResolution.Entities)))
	c.Layers.Set(float64(len(result.SemanticAnalysis.SemanticLayers)))
	c.Repairs.Add(float64(len(diag.Repairs)))
	c.BrokenLinks.Add(float64(len(diag.BrokenLinks)))
}

// CacheLookup records a result cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
