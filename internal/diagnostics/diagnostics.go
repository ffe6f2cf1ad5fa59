// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diagnostics audits a resolved link set, proposes repairs for
// dangling references, and scores the corpus's referential integrity.
// Repairs are reported for the content store to persist; this package never
// rewrites a node.
package diagnostics

import (
	"go.uber.org/zap"

	"github.com/pdiddy/integrity-engine/internal/similarity"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Density label boundaries.
const (
	sparseBelow   = 0.1
	moderateBelow = 0.3
)

// Engine runs the integrity audit.
type Engine struct {
	Scorer Scorer
	// RepairThreshold is used as given; NewEngine fills the default.
	RepairThreshold float64
	Logger          *zap.Logger
}

// NewEngine returns an Engine using the hybrid scorer and the configured
// threshold.
func NewEngine(cfg types.DiagnosticsConfig) *Engine {
	return &Engine{
		Scorer:          NewHybridScorer(cfg),
		RepairThreshold: cfg.Threshold(),
		Logger:          zap.NewNop(),
	}
}

// candidate is the best match found for one dangling reference.
type candidate struct {
	id     string
	score  float64
	shared int
}

// better reports whether c beats the current best: higher score, then more
// shared anchors, then smaller ID.
func (c candidate) better(best candidate) bool {
	if best.id == "" {
		return true
	}
	if c.score != best.score {
		return c.score > best.score
	}
	if c.shared != best.shared {
		return c.shared > best.shared
	}
	return c.id < best.id
}

// Diagnose builds the report for snap given its links and semantic layers.
// Each dangling reference is resolved once, in declaration order.
func (e *Engine) Diagnose(snap *snapshot.Snapshot, links types.LinkSet, layers []types.SemanticLayer) types.DiagnosticsReport {
	scorer := e.Scorer
	if scorer == nil {
		scorer = NewHybridScorer(types.DiagnosticsConfig{})
	}
	threshold := e.RepairThreshold
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	report := types.DiagnosticsReport{
		TotalReferences: links.TotalReferences,
		ValidReferences: links.TotalReferences - len(links.Dangling),
		Repairs:         []types.Repair{},
		BrokenLinks:     []types.BrokenLink{},
	}

	for _, ref := range links.Dangling {
		best := e.bestCandidate(snap, scorer, ref)
		if best.id != "" && best.score >= threshold {
			report.Repairs = append(report.Repairs, types.Repair{
				SourceNodeID: ref.SourceNodeID,
				OriginalID:   ref.OriginalID,
				RepairedID:   best.id,
				Confidence:   best.score,
			})
			log.Debug("reference repaired",
				zap.String("source", ref.SourceNodeID),
				zap.String("original", ref.OriginalID),
				zap.String("repaired", best.id),
				zap.Float64("confidence", best.score))
			continue
		}
		report.BrokenLinks = append(report.BrokenLinks, types.BrokenLink{
			SourceNodeID:  ref.SourceNodeID,
			OriginalID:    ref.OriginalID,
			BestCandidate: best.id,
			BestScore:     best.score,
		})
		log.Debug("reference broken",
			zap.String("source", ref.SourceNodeID),
			zap.String("original", ref.OriginalID),
			zap.Float64("best_score", best.score))
	}

	report.IntegrityScore = IntegrityScore(len(report.BrokenLinks), report.TotalReferences)
	report.ConnectionDensity = Density(len(links.Edges), snap.Len())
	report.DensityLabel = DensityLabel(report.ConnectionDensity)
	report.IsolatedNodes, report.LayerCoverage = coverage(snap, links, layers)
	return report
}

func (e *Engine) bestCandidate(snap *snapshot.Snapshot, scorer Scorer, ref types.DanglingRef) candidate {
	source, ok := snap.Get(ref.SourceNodeID)
	if !ok {
		return candidate{}
	}
	sourceAnchors := snap.AnchorsOf(source.ID)

	var best candidate
	for i := 0; i < snap.Len(); i++ {
		n := snap.At(i)
		if n.ID == source.ID {
			continue
		}
		c := candidate{
			id:     n.ID,
			score:  scorer.Score(ref, source, n),
			shared: similarity.Shared(sourceAnchors, snap.Anchors(i)),
		}
		if c.better(best) {
			best = c
		}
	}
	return best
}

// IntegrityScore returns 100 × (1 − broken/total), or 100 when there are no
// references.
func IntegrityScore(broken, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * (1 - float64(broken)/float64(total))
}

// Density returns edges over the n(n−1)/2 possible pairs, or 0 for fewer
// than two nodes.
func Density(edges, nodes int) float64 {
	if nodes < 2 {
		return 0
	}
	return float64(edges) / float64(nodes*(nodes-1)/2)
}

// DensityLabel maps a density ratio to sparse, moderate, or dense.
func DensityLabel(d float64) string {
	switch {
	case d < sparseBelow:
		return types.DensitySparse
	case d < moderateBelow:
		return types.DensityModerate
	default:
		return types.DensityDense
	}
}

// coverage returns nodes with no edge and no layer, in corpus order, and the
// fraction of nodes that belong to a layer.
func coverage(snap *snapshot.Snapshot, links types.LinkSet, layers []types.SemanticLayer) ([]string, float64) {
	connected := make(map[string]bool)
	for _, e := range links.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	layered := make(map[string]bool)
	for _, l := range layers {
		for _, id := range l.MemberNodeIDs {
			layered[id] = true
		}
	}

	isolated := []string{}
	for i := 0; i < snap.Len(); i++ {
		id := snap.At(i).ID
		if !connected[id] && !layered[id] {
			isolated = append(isolated, id)
		}
	}

	if snap.Len() == 0 {
		return isolated, 0
	}
	return isolated, float64(len(layered)) / float64(snap.Len())
}
