// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package links builds the edge set of a corpus: explicit edges from declared
// references and inferred edges from shared anchors. References to absent
// nodes are collected as dangling references for the repair pass.
package links

import (
	"sort"

	"github.com/pdiddy/integrity-engine/internal/similarity"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// pairKey identifies an unordered node pair by insertion positions, lower first.
type pairKey struct{ lo, hi int }

func keyOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Resolve derives the edge set and dangling references of snap.
//
// Edges are ordered by the source node's insertion position, then the
// target's. Inferred edges use the earlier-inserted node as source. Each
// unordered pair yields at most one edge, and an explicit edge in either
// direction suppresses the inferred one.
func Resolve(snap *snapshot.Snapshot) types.LinkSet {
	var out types.LinkSet
	explicitPairs := make(map[pairKey]bool)

	for i := 0; i < snap.Len(); i++ {
		n := snap.At(i)
		for pos, target := range n.LinksTo {
			out.TotalReferences++

			j := snap.Position(target)
			if j < 0 {
				out.Dangling = append(out.Dangling, types.DanglingRef{
					SourceNodeID: n.ID,
					OriginalID:   target,
					Position:     pos,
				})
				continue
			}
			// Self references are valid but do not form an edge. A pair
			// declared in both directions keeps the first declaration.
			if j == i || explicitPairs[keyOf(i, j)] {
				continue
			}
			explicitPairs[keyOf(i, j)] = true
			out.Edges = append(out.Edges, types.Edge{
				Source: n.ID,
				Target: target,
				Kind:   types.EdgeExplicit,
				Weight: 1.0,
			})
		}
	}

	out.Edges = append(out.Edges, inferred(snap, explicitPairs)...)
	sort.SliceStable(out.Edges, func(a, b int) bool {
		sa, sb := snap.Position(out.Edges[a].Source), snap.Position(out.Edges[b].Source)
		if sa != sb {
			return sa < sb
		}
		return snap.Position(out.Edges[a].Target) < snap.Position(out.Edges[b].Target)
	})
	return out
}

// inferred returns one edge per unordered pair sharing at least one anchor,
// weighted by the Jaccard overlap of their anchor sets.
func inferred(snap *snapshot.Snapshot, skip map[pairKey]bool) []types.Edge {
	// Bucket positions by anchor so only pairs that share something are scored.
	byAnchor := make(map[string][]int)
	for i := 0; i < snap.Len(); i++ {
		for _, a := range snap.At(i).Anchors {
			byAnchor[a] = append(byAnchor[a], i)
		}
	}

	partners := make([]map[int]bool, snap.Len())
	for _, members := range byAnchor {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				lo, hi := members[x], members[y]
				if partners[lo] == nil {
					partners[lo] = make(map[int]bool)
				}
				partners[lo][hi] = true
			}
		}
	}

	var edges []types.Edge
	for i := 0; i < snap.Len(); i++ {
		if len(partners[i]) == 0 {
			continue
		}
		for j := i + 1; j < snap.Len(); j++ {
			if !partners[i][j] || skip[pairKey{i, j}] {
				continue
			}
			edges = append(edges, types.Edge{
				Source: snap.At(i).ID,
				Target: snap.At(j).ID,
				Kind:   types.EdgeInferred,
				Weight: similarity.Jaccard(snap.Anchors(i), snap.Anchors(j)),
			})
		}
	}
	return edges
}
