// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package semantic groups nodes into layers by dominant anchor and reports
// strong inferred connections between nodes of different types.
package semantic

import (
	"sort"

	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Analyze builds the semantic analysis of snap over its resolved links.
func Analyze(snap *snapshot.Snapshot, links types.LinkSet, cfg types.SemanticConfig) types.SemanticAnalysis {
	return types.SemanticAnalysis{
		SemanticLayers:       Layers(snap, links),
		CrossDomainKnowledge: CrossDomain(snap, links, cfg.Threshold()),
	}
}

// AnchorFrequency counts how many nodes carry each anchor.
func AnchorFrequency(snap *snapshot.Snapshot) map[string]int {
	freq := make(map[string]int)
	for i := 0; i < snap.Len(); i++ {
		for _, a := range snap.At(i).Anchors {
			freq[a]++
		}
	}
	return freq
}

// DominantAnchor returns the node's anchor with the highest corpus
// frequency. Ties go to the lexicographically smaller anchor. A node with no
// anchors has no dominant anchor.
func DominantAnchor(n types.Node, freq map[string]int) (string, bool) {
	best, bestN := "", 0
	for _, a := range n.Anchors {
		f := freq[a]
		if f > bestN || (f == bestN && a < best) {
			best, bestN = a, f
		}
	}
	return best, bestN > 0
}

// Layers groups nodes by dominant anchor. Groups with fewer than two members
// are discarded. Layers are ordered by their first member's corpus position.
func Layers(snap *snapshot.Snapshot, links types.LinkSet) []types.SemanticLayer {
	freq := AnchorFrequency(snap)

	var order []string
	members := make(map[string][]int)
	for i := 0; i < snap.Len(); i++ {
		anchor, ok := DominantAnchor(snap.At(i), freq)
		if !ok {
			continue
		}
		if _, seen := members[anchor]; !seen {
			order = append(order, anchor)
		}
		members[anchor] = append(members[anchor], i)
	}

	weights := edgeWeights(links)
	var layers []types.SemanticLayer
	for _, anchor := range order {
		idx := members[anchor]
		if len(idx) < 2 {
			continue
		}
		layers = append(layers, buildLayer(snap, anchor, idx, weights))
	}
	return layers
}

func buildLayer(snap *snapshot.Snapshot, anchor string, idx []int, weights map[[2]string]float64) types.SemanticLayer {
	ids := make([]string, len(idx))
	themes := make(map[string]int)
	concepts := make(map[string]bool)
	for k, i := range idx {
		n := snap.At(i)
		ids[k] = n.ID
		for _, th := range n.Themes {
			themes[th]++
		}
		for _, a := range n.Anchors {
			concepts[a] = true
		}
	}

	layerType := anchor
	if len(themes) > 0 {
		layerType = mostFrequent(themes)
	}

	conceptList := make([]string, 0, len(concepts))
	for c := range concepts {
		conceptList = append(conceptList, c)
	}
	sort.Strings(conceptList)

	var total float64
	for a := 0; a < len(ids); a++ {
		for b := a + 1; b < len(ids); b++ {
			total += weights[pair(ids[a], ids[b])]
		}
	}
	pairs := len(ids) * (len(ids) - 1) / 2

	return types.SemanticLayer{
		LayerType:     layerType,
		Anchor:        anchor,
		Concepts:      conceptList,
		MemberNodeIDs: ids,
		Cohesion:      total / float64(pairs),
	}
}

// CrossDomain returns inferred edges whose endpoints differ in type and whose
// weight exceeds threshold, in edge order.
func CrossDomain(snap *snapshot.Snapshot, links types.LinkSet, threshold float64) []types.CrossDomainLink {
	var out []types.CrossDomainLink
	for _, e := range links.Edges {
		if e.Kind != types.EdgeInferred || e.Weight <= threshold {
			continue
		}
		src, ok1 := snap.Get(e.Source)
		dst, ok2 := snap.Get(e.Target)
		if !ok1 || !ok2 || src.Type == dst.Type {
			continue
		}
		out = append(out, types.CrossDomainLink{
			SourceNodeID: src.ID,
			TargetNodeID: dst.ID,
			SourceType:   src.Type,
			TargetType:   dst.Type,
			Score:        e.Weight,
		})
	}
	return out
}

func edgeWeights(links types.LinkSet) map[[2]string]float64 {
	w := make(map[[2]string]float64, len(links.Edges))
	for _, e := range links.Edges {
		w[pair(e.Source, e.Target)] = e.Weight
	}
	return w
}

func pair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

func mostFrequent(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
