// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entity

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pdiddy/integrity-engine/internal/similarity"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// entityNamespace seeds name-based entity IDs so the same canonical name
// always yields the same ID.
var entityNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("integrity-engine/entity"))

// EntityID returns the stable ID for a canonical entity name.
func EntityID(name string) string {
	return "ent-" + uuid.NewSHA1(entityNamespace, []byte(similarity.Normalize(name))).String()
}

// allowedDistance caps the edit distance for two forms of the given maximum
// length: never more than maxEdit and never more than a fifth of the length,
// so short acronyms only merge on exact match.
func allowedDistance(maxLen, maxEdit int) int {
	return min(maxEdit, maxLen/5)
}

// cluster groups mentions whose normalized forms are identical or within the
// allowed edit distance. Clusters and their mentions keep corpus order.
func cluster(mentions []types.Mention, maxEdit int) [][]types.Mention {
	var forms []string
	byForm := make(map[string][]types.Mention)
	for _, m := range mentions {
		f := similarity.Normalize(m.SurfaceForm)
		if f == "" {
			continue
		}
		if _, ok := byForm[f]; !ok {
			forms = append(forms, f)
		}
		byForm[f] = append(byForm[f], m)
	}

	parent := make([]int, len(forms))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// The earlier form stays root so cluster order follows first appearance.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < len(forms); i++ {
		li := len([]rune(forms[i]))
		for j := i + 1; j < len(forms); j++ {
			lj := len([]rune(forms[j]))
			allowed := allowedDistance(max(li, lj), maxEdit)
			if allowed == 0 || abs(li-lj) > allowed {
				continue
			}
			if similarity.Distance(forms[i], forms[j]) <= allowed {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]types.Mention)
	var roots []int
	for _, m := range mentions {
		f := similarity.Normalize(m.SurfaceForm)
		if f == "" {
			continue
		}
		i := indexOf(forms, f)
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], m)
	}

	out := make([][]types.Mention, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}

// buildEntity turns one mention cluster into an Entity.
func buildEntity(mentions []types.Mention) types.Entity {
	surfaceCounts := make(map[string]int)
	typeCounts := make(map[string]int)
	for _, m := range mentions {
		surfaceCounts[m.SurfaceForm]++
		typeCounts[m.EntityType]++
	}

	primary := mostFrequent(surfaceCounts)
	return types.Entity{
		ID:          EntityID(primary),
		PrimaryName: primary,
		EntityType:  mostFrequent(typeCounts),
		Mentions:    append([]types.Mention(nil), mentions...),
		Confidence:  float64(surfaceCounts[primary]) / float64(len(mentions)),
	}
}

// mostFrequent returns the key with the highest count; ties go to the
// lexicographically smallest key.
func mostFrequent(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestN := "", -1
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if it == s {
			return i
		}
	}
	return -1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
