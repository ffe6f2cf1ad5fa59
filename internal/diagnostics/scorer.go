// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diagnostics

import (
	"github.com/pdiddy/integrity-engine/internal/similarity"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Scorer rates how likely candidate is the intended target of a dangling
// reference declared by source. Scores fall in [0, 1].
type Scorer interface {
	Score(ref types.DanglingRef, source, candidate types.Node) float64
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ref types.DanglingRef, source, candidate types.Node) float64

// Score calls f.
func (f ScorerFunc) Score(ref types.DanglingRef, source, candidate types.Node) float64 {
	return f(ref, source, candidate)
}

// HybridScorer mixes string similarity between the dangling ID and the
// candidate's ID or title with anchor overlap between source and candidate.
// The weights should sum to 1.
type HybridScorer struct {
	StringWeight float64
	AnchorWeight float64
}

// NewHybridScorer returns a HybridScorer with the configured weights.
func NewHybridScorer(cfg types.DiagnosticsConfig) HybridScorer {
	if cfg.StringWeight <= 0 && cfg.AnchorWeight <= 0 {
		return HybridScorer{StringWeight: types.DefaultRepairStringWeight, AnchorWeight: types.DefaultRepairAnchorWeight}
	}
	return HybridScorer{StringWeight: cfg.StringWeight, AnchorWeight: cfg.AnchorWeight}
}

// Score implements Scorer.
func (h HybridScorer) Score(ref types.DanglingRef, source, candidate types.Node) float64 {
	str := max(
		similarity.String(ref.OriginalID, candidate.ID),
		similarity.String(ref.OriginalID, candidate.Title),
	)
	overlap := similarity.Jaccard(similarity.NewSet(source.Anchors...), similarity.NewSet(candidate.Anchors...))
	return h.StringWeight*str + h.AnchorWeight*overlap
}
