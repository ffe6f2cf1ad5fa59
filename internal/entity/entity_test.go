package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

func mustSnap(t *testing.T, nodes ...types.Node) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.New(nodes)
	require.NoError(t, err)
	return snap
}

func note(id, content string) types.Node {
	return types.Node{ID: id, Type: types.NodeTactic, Content: content}
}

func TestPatternExtractor(t *testing.T) {
	n := types.Node{
		ID:      "n1",
		Title:   "Media capture",
		Content: "During Operation Mockingbird, the Central Intelligence Agency recruited journalists. COINTELPRO targeted Martin King.",
	}

	got := PatternExtractor{}.Extract(n)

	want := []types.Mention{
		{NodeID: "n1", SurfaceForm: "Operation Mockingbird", EntityType: types.EntityOperation},
		{NodeID: "n1", SurfaceForm: "Central Intelligence Agency", EntityType: types.EntityOrganization},
		{NodeID: "n1", SurfaceForm: "COINTELPRO", EntityType: types.EntityOrganization},
		{NodeID: "n1", SurfaceForm: "Martin King", EntityType: types.EntityPerson},
	}
	assert.Equal(t, want, got)
}

func TestPatternExtractorSpans(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Hoover ordered it.", nil},
		{"The Church Committee reported.", []string{"Church Committee"}},
		{"Officials at the Bureau of the Budget objected.", []string{"Bureau of the Budget"}},
		{"The CIA and the FBI cooperated.", []string{"CIA", "FBI"}},
		{"Memo (Operation Chaos) leaked, Richard Helms said.", []string{"Operation Chaos", "Richard Helms"}},
		{"the NSA, the NSA again.", []string{"NSA"}},
		{"The FBI of the CIA requires NSA approval.", []string{"FBI", "CIA", "NSA"}},
		{"Agents of CIA met.", []string{"CIA"}},
		{"Director of the Bureau of Investigation resigned.", []string{"Director of the Bureau of Investigation"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var got []string
			for _, m := range (PatternExtractor{}).Extract(types.Node{ID: "x", Content: tt.text}) {
				got = append(got, m.SurfaceForm)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCanonicalization(t *testing.T) {
	snap := mustSnap(t,
		note("n1", "Operation Mockingbird expanded."),
		note("n2", "Operation Mockingbird continued."),
		note("n3", "Operation Mockingbirds was a misspelling."),
		note("n4", "The CIA and the FBI cooperated."),
	)

	res := NewResolver(types.EntityConfig{MaxEditDistance: types.Int(2)}).Resolve(snap)

	require.Len(t, res.Entities, 3)
	op := res.Entities[0]
	assert.Equal(t, "Operation Mockingbird", op.PrimaryName)
	assert.Equal(t, types.EntityOperation, op.EntityType)
	assert.Equal(t, EntityID("Operation Mockingbird"), op.ID)
	assert.Len(t, op.Mentions, 3)
	assert.InDelta(t, 2.0/3.0, op.Confidence, 1e-9)

	// Short acronyms only merge on an exact match.
	assert.Equal(t, "CIA", res.Entities[1].PrimaryName)
	assert.Equal(t, "FBI", res.Entities[2].PrimaryName)
	assert.Equal(t, 1.0, res.Entities[1].Confidence)
}

func TestEntityIDStable(t *testing.T) {
	assert.Equal(t, EntityID("Operation Mockingbird"), EntityID("operation  mockingbird"))
	assert.NotEqual(t, EntityID("CIA"), EntityID("FBI"))
	assert.Regexp(t, `^ent-[0-9a-f-]{36}$`, EntityID("CIA"))
}

func TestResolveEntityIDsUnique(t *testing.T) {
	forms := []string{"Church Committee", "CHURCH COMMITTEE", "Church-Committee", "Pike Committee", "Pike Comittee"}
	r := &Resolver{
		Extractor: ExtractorFunc(func(n types.Node) []types.Mention {
			var out []types.Mention
			for _, f := range forms {
				out = append(out, types.Mention{NodeID: n.ID, SurfaceForm: f, EntityType: types.EntityOrganization})
			}
			return out
		}),
		MaxEditDistance: 2,
	}

	res := r.Resolve(mustSnap(t, note("n1", ""), note("n2", "")))

	require.Len(t, res.Entities, 2)
	seen := map[string]bool{}
	for _, e := range res.Entities {
		assert.False(t, seen[e.ID], "duplicate entity ID %s", e.ID)
		seen[e.ID] = true
		assert.Equal(t, EntityID(e.PrimaryName), e.ID)
	}
}

func TestResolveRelationTypes(t *testing.T) {
	tests := []struct {
		name  string
		nodes []types.Node
		want  string
	}{
		{
			name:  "verb pattern",
			nodes: []types.Node{note("n1", "COINTELPRO counters the Black Panther Party.")},
			want:  types.RelationCounters,
		},
		{
			name: "anchor linked",
			nodes: []types.Node{
				{ID: "n1", Type: types.NodeTactic, Anchors: []string{"oversight"}, Content: "The Church Committee questioned Frank Church."},
				{ID: "n2", Type: types.NodeLesson, Anchors: []string{"oversight"}, Content: "Frank Church retired."},
			},
			want: types.RelationAnchorLinked,
		},
		{
			name: "same type falls back to co-occurrence",
			nodes: []types.Node{
				{ID: "n1", Type: types.NodeTactic, Anchors: []string{"oversight"}, Content: "The Church Committee questioned Frank Church."},
				{ID: "n2", Type: types.NodeTactic, Anchors: []string{"oversight"}, Content: "Frank Church retired."},
			},
			want: types.RelationCoOccurrence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResolver(types.EntityConfig{}).Resolve(mustSnap(t, tt.nodes...))
			require.Len(t, res.Relationships, 1)
			rel := res.Relationships[0]
			assert.Equal(t, tt.want, rel.RelationType)
			assert.Equal(t, 1, rel.SupportCount)
			assert.Equal(t, []string{"n1"}, rel.Evidence)
		})
	}
}

func TestResolveSupportCount(t *testing.T) {
	snap := mustSnap(t,
		note("a", "The CIA and the FBI cooperated."),
		note("b", "Nothing here."),
		note("c", "Later the FBI briefed the CIA."),
	)

	res := NewResolver(types.EntityConfig{}).Resolve(snap)

	require.Len(t, res.Relationships, 1)
	rel := res.Relationships[0]
	assert.Equal(t, 2, rel.SupportCount)
	assert.Equal(t, []string{"a", "c"}, rel.Evidence)
	assert.Less(t, rel.EntityA, rel.EntityB)
}

func TestResolveNoMentions(t *testing.T) {
	res := NewResolver(types.EntityConfig{}).Resolve(mustSnap(t, note("a", "nothing to see here.")))
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Relationships)
}

func TestResolveCustomExtractor(t *testing.T) {
	r := NewResolver(types.EntityConfig{})
	r.Extractor = ExtractorFunc(func(n types.Node) []types.Mention {
		return []types.Mention{{NodeID: n.ID, SurfaceForm: "Shared Thing", EntityType: types.EntityConcept}}
	})

	res := r.Resolve(mustSnap(t, note("a", ""), note("b", "")))

	require.Len(t, res.Entities, 1)
	assert.Len(t, res.Entities[0].Mentions, 2)
	assert.Empty(t, res.Relationships)
}

func TestResolveDeterministic(t *testing.T) {
	snap := mustSnap(t,
		note("a", "The CIA and the FBI cooperated under Operation Chaos."),
		note("c", "Richard Helms ran Operation Chaos for the CIA."),
	)
	r := NewResolver(types.EntityConfig{})
	assert.Equal(t, r.Resolve(snap), r.Resolve(snap))
}
