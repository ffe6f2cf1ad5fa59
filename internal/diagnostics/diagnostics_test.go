package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/integrity-engine/internal/links"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

func mustSnap(t *testing.T, nodes ...types.Node) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.New(nodes)
	require.NoError(t, err)
	return snap
}

func diagnose(t *testing.T, e *Engine, nodes ...types.Node) types.DiagnosticsReport {
	t.Helper()
	snap := mustSnap(t, nodes...)
	return e.Diagnose(snap, links.Resolve(snap), nil)
}

func TestDiagnoseScenario(t *testing.T) {
	snap := mustSnap(t,
		types.Node{ID: "A", LinksTo: []string{"B", "ghost-1"}},
		types.Node{ID: "B", Anchors: []string{"siege"}},
		types.Node{ID: "C", Title: "Ghost 1", Anchors: []string{"siege"}},
	)
	layers := []types.SemanticLayer{{Anchor: "siege", MemberNodeIDs: []string{"B", "C"}}}

	report := NewEngine(types.DiagnosticsConfig{}).Diagnose(snap, links.Resolve(snap), layers)

	require.Len(t, report.Repairs, 1)
	r := report.Repairs[0]
	assert.Equal(t, "A", r.SourceNodeID)
	assert.Equal(t, "ghost-1", r.OriginalID)
	assert.Equal(t, "C", r.RepairedID)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)

	assert.Empty(t, report.BrokenLinks)
	assert.Equal(t, 100.0, report.IntegrityScore)
	assert.Equal(t, 2, report.TotalReferences)
	assert.Equal(t, 1, report.ValidReferences)
	assert.InDelta(t, 2.0/3.0, report.ConnectionDensity, 1e-9)
	assert.Equal(t, types.DensityDense, report.DensityLabel)
	assert.Empty(t, report.IsolatedNodes)
	assert.InDelta(t, 2.0/3.0, report.LayerCoverage, 1e-9)
}

func TestDiagnoseBroken(t *testing.T) {
	report := diagnose(t, NewEngine(types.DiagnosticsConfig{}),
		types.Node{ID: "alpha", LinksTo: []string{"xyzzy"}},
		types.Node{ID: "beta"},
	)

	assert.Empty(t, report.Repairs)
	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, "beta", report.BrokenLinks[0].BestCandidate)
	assert.Less(t, report.BrokenLinks[0].BestScore, types.DefaultRepairThreshold)
	assert.Equal(t, 0.0, report.IntegrityScore)
	assert.Equal(t, []string{"alpha", "beta"}, report.IsolatedNodes)
	assert.Equal(t, []string{"xyzzy"}, report.BrokenIDs())
}

func TestDiagnoseNoCandidates(t *testing.T) {
	report := diagnose(t, NewEngine(types.DiagnosticsConfig{}), types.Node{ID: "solo", LinksTo: []string{"solo-2"}})

	require.Len(t, report.BrokenLinks, 1)
	assert.Empty(t, report.BrokenLinks[0].BestCandidate)
	assert.Zero(t, report.BrokenLinks[0].BestScore)
	assert.Zero(t, report.ConnectionDensity)
	assert.Equal(t, types.DensitySparse, report.DensityLabel)
}

func TestDiagnoseNoReferences(t *testing.T) {
	report := diagnose(t, NewEngine(types.DiagnosticsConfig{}), types.Node{ID: "a"}, types.Node{ID: "b"})
	assert.Equal(t, 100.0, report.IntegrityScore)
	assert.NotNil(t, report.Repairs)
	assert.NotNil(t, report.BrokenLinks)
}

func TestDiagnoseTieBreak(t *testing.T) {
	e := &Engine{
		Scorer:          ScorerFunc(func(types.DanglingRef, types.Node, types.Node) float64 { return 0.7 }),
		RepairThreshold: 0.6,
	}

	report := diagnose(t, e,
		types.Node{ID: "src", Anchors: []string{"x"}, LinksTo: []string{"missing"}},
		types.Node{ID: "b"},
		types.Node{ID: "d", Anchors: []string{"x"}},
		types.Node{ID: "c", Anchors: []string{"x"}},
	)

	require.Len(t, report.Repairs, 1)
	assert.Equal(t, "c", report.Repairs[0].RepairedID)
}

func TestDiagnoseThresholdInclusive(t *testing.T) {
	e := &Engine{
		Scorer:          ScorerFunc(func(types.DanglingRef, types.Node, types.Node) float64 { return 0.6 }),
		RepairThreshold: 0.6,
	}

	report := diagnose(t, e,
		types.Node{ID: "src", LinksTo: []string{"missing"}},
		types.Node{ID: "other"},
	)
	assert.Len(t, report.Repairs, 1)
	assert.Empty(t, report.BrokenLinks)
}

func TestDiagnoseSoundness(t *testing.T) {
	nodes := []types.Node{
		{ID: "church-committee", Title: "Church Committee", Anchors: []string{"oversight"}, LinksTo: []string{"church-comittee", "pike-committee", "cointelpro"}},
		{ID: "cointelpro-overview", Title: "COINTELPRO", Anchors: []string{"surveillance"}, LinksTo: []string{"mockingbird", "church-committe"}},
		{ID: "operation-mockingbird", Title: "Operation Mockingbird", Anchors: []string{"media", "oversight"}},
		{ID: "hoover", Title: "J. Edgar Hoover", Anchors: []string{"surveillance"}, LinksTo: []string{"hover", "zzz"}},
	}
	e := NewEngine(types.DiagnosticsConfig{})
	snap := mustSnap(t, nodes...)
	report := e.Diagnose(snap, links.Resolve(snap), nil)

	for _, r := range report.Repairs {
		assert.GreaterOrEqual(t, r.Confidence, e.RepairThreshold, r.OriginalID)
		assert.False(t, snap.Has(r.OriginalID))
		assert.True(t, snap.Has(r.RepairedID))
	}
	for _, b := range report.BrokenLinks {
		assert.Less(t, b.BestScore, e.RepairThreshold, b.OriginalID)
		for i := 0; i < snap.Len(); i++ {
			n := snap.At(i)
			if n.ID == b.SourceNodeID {
				continue
			}
			src, _ := snap.Get(b.SourceNodeID)
			assert.Less(t, e.Scorer.Score(types.DanglingRef{SourceNodeID: b.SourceNodeID, OriginalID: b.OriginalID}, src, n), e.RepairThreshold)
		}
	}
	assert.Equal(t, 7, len(report.Repairs)+len(report.BrokenLinks))
}

func TestIntegrityMonotonicity(t *testing.T) {
	base := []types.Node{
		{ID: "a", LinksTo: []string{"siege-of-leningrad", "qqq"}},
		{ID: "b"},
	}
	e := NewEngine(types.DiagnosticsConfig{})
	before := diagnose(t, e, base...)

	grown := append(append([]types.Node(nil), base...), types.Node{ID: "leningrad-siege", Title: "Siege of Leningrad"})
	after := diagnose(t, e, grown...)

	assert.Greater(t, after.IntegrityScore, before.IntegrityScore)
	assert.Equal(t, 50.0, after.IntegrityScore)
}

func TestDensityLabel(t *testing.T) {
	tests := []struct {
		d    float64
		want string
	}{
		{0, types.DensitySparse},
		{0.09, types.DensitySparse},
		{0.1, types.DensityModerate},
		{0.29, types.DensityModerate},
		{0.3, types.DensityDense},
		{1, types.DensityDense},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DensityLabel(tt.d), "density %v", tt.d)
	}
}

func TestHybridScorer(t *testing.T) {
	h := NewHybridScorer(types.DiagnosticsConfig{})
	src := types.Node{ID: "s", Anchors: []string{"siege", "logistics"}}

	tests := []struct {
		name string
		cand types.Node
		want float64
	}{
		{"id match", types.Node{ID: "ghost-1"}, 0.8},
		{"title match with full anchor overlap", types.Node{ID: "x", Title: "Ghost 1", Anchors: []string{"siege", "logistics"}}, 1.0},
		{"anchors only", types.Node{ID: "qq", Anchors: []string{"siege"}}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Score(types.DanglingRef{OriginalID: "ghost-1"}, src, tt.cand)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
