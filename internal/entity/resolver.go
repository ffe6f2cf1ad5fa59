// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entity

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Resolver extracts mentions from every node, clusters them into entities,
// and derives relationships between entities that share a node.
type Resolver struct {
	Extractor Extractor
	// MaxEditDistance is used as given; zero clusters exact matches only.
	MaxEditDistance int
	Logger          *zap.Logger
}

// NewResolver returns a Resolver with the pattern extractor and the
// configured edit distance.
func NewResolver(cfg types.EntityConfig) *Resolver {
	return &Resolver{
		Extractor:       PatternExtractor{},
		MaxEditDistance: cfg.EditDistance(),
		Logger:          zap.NewNop(),
	}
}

// Resolve builds the entity resolution of snap. It never fails; nodes with
// no recognizable mentions contribute nothing.
func (r *Resolver) Resolve(snap *snapshot.Snapshot) types.EntityResolution {
	extractor := r.Extractor
	if extractor == nil {
		extractor = PatternExtractor{}
	}
	maxEdit := r.MaxEditDistance
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var mentions []types.Mention
	for i := 0; i < snap.Len(); i++ {
		mentions = append(mentions, extractor.Extract(snap.At(i))...)
	}

	clusters := cluster(mentions, maxEdit)
	entities := make([]types.Entity, 0, len(clusters))
	for _, c := range clusters {
		entities = append(entities, buildEntity(c))
	}

	relationships := relate(snap, entities)
	log.Debug("entities resolved",
		zap.Int("mentions", len(mentions)),
		zap.Int("entities", len(entities)),
		zap.Int("relationships", len(relationships)))

	return types.EntityResolution{Entities: entities, Relationships: relationships}
}

// verbPatterns maps verb forms to relation types.
var verbPatterns = []struct {
	re       *regexp.Regexp
	relation string
}{
	{regexp.MustCompile(`(?i)\b(enables|enabled|enable|enabling)\b`), types.RelationEnables},
	{regexp.MustCompile(`(?i)\b(counters|countered|countering|counter)\b`), types.RelationCounters},
	{regexp.MustCompile(`(?i)\b(amplifies|amplified|amplify|amplifying)\b`), types.RelationAmplifies},
	{regexp.MustCompile(`(?i)\b(requires|required|require|requiring)\b`), types.RelationRequires},
	{regexp.MustCompile(`(?i)\b(mirrors|mirrored|mirror|mirroring)\b`), types.RelationMirrors},
}

type pairKey struct{ a, b string }

// relate derives one relationship per entity pair that co-occurs in at
// least one node. Relationships are ordered by first supporting node, then
// by entity IDs.
func relate(snap *snapshot.Snapshot, entities []types.Entity) []types.Relationship {
	// node ID -> entity -> surface forms seen in that node
	byNode := make(map[string]map[string][]string)
	// entity -> node IDs with a mention
	nodesOf := make(map[string][]string)
	for _, e := range entities {
		for _, m := range e.Mentions {
			if byNode[m.NodeID] == nil {
				byNode[m.NodeID] = make(map[string][]string)
			}
			if len(byNode[m.NodeID][e.ID]) == 0 {
				nodesOf[e.ID] = append(nodesOf[e.ID], m.NodeID)
			}
			byNode[m.NodeID][e.ID] = append(byNode[m.NodeID][e.ID], m.SurfaceForm)
		}
	}

	index := make(map[pairKey]int)
	var rels []types.Relationship
	for i := 0; i < snap.Len(); i++ {
		node := snap.At(i)
		present := byNode[node.ID]
		if len(present) < 2 {
			continue
		}
		ids := make([]string, 0, len(present))
		for id := range present {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for x := 0; x < len(ids); x++ {
			for y := x + 1; y < len(ids); y++ {
				key := pairKey{ids[x], ids[y]}
				k, ok := index[key]
				if !ok {
					k = len(rels)
					index[key] = k
					rels = append(rels, types.Relationship{EntityA: key.a, EntityB: key.b})
				}
				rels[k].SupportCount++
				rels[k].Evidence = append(rels[k].Evidence, node.ID)
				if rels[k].RelationType == "" {
					rels[k].RelationType = verbRelation(node, present[key.a], present[key.b])
				}
			}
		}
	}

	for k := range rels {
		if rels[k].RelationType != "" {
			continue
		}
		if anchorLinked(snap, nodesOf[rels[k].EntityA], nodesOf[rels[k].EntityB]) {
			rels[k].RelationType = types.RelationAnchorLinked
		} else {
			rels[k].RelationType = types.RelationCoOccurrence
		}
	}
	return rels
}

// verbRelation looks for a sentence in node where a verb from the relation
// vocabulary sits between a mention of one entity and a mention of the
// other. It returns "" when no sentence qualifies.
func verbRelation(node types.Node, formsA, formsB []string) string {
	for _, text := range []string{node.Title, node.Content} {
		for _, sentence := range Sentences(text) {
			for _, fa := range formsA {
				for _, fb := range formsB {
					if rel := between(sentence, fa, fb); rel != "" {
						return rel
					}
				}
			}
		}
	}
	return ""
}

func between(sentence, fa, fb string) string {
	ia, ib := strings.Index(sentence, fa), strings.Index(sentence, fb)
	if ia < 0 || ib < 0 {
		return ""
	}
	lo, hi := ia+len(fa), ib
	if ib < ia {
		lo, hi = ib+len(fb), ia
	}
	if lo >= hi {
		return ""
	}
	gap := sentence[lo:hi]
	for _, p := range verbPatterns {
		if p.re.MatchString(gap) {
			return p.relation
		}
	}
	return ""
}

// anchorLinked reports whether some node mentioning A and some other node
// mentioning B have different types and share an anchor.
func anchorLinked(snap *snapshot.Snapshot, nodesA, nodesB []string) bool {
	for _, a := range nodesA {
		na, ok := snap.Get(a)
		if !ok {
			continue
		}
		anchorsA := snap.AnchorsOf(a)
		for _, b := range nodesB {
			if a == b {
				continue
			}
			nb, ok := snap.Get(b)
			if !ok || na.Type == nb.Type {
				continue
			}
			for _, anchor := range nb.Anchors {
				if anchorsA.Has(anchor) {
					return true
				}
			}
		}
	}
	return false
}
