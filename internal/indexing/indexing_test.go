package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/integrity-engine/internal/diagnostics"
	"github.com/pdiddy/integrity-engine/internal/entity"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

func scenario() []types.Node {
	return []types.Node{
		{ID: "A", Type: types.NodeTactic, Title: "Encirclement", LinksTo: []string{"B", "ghost-1"}, Metadata: types.NodeMetadata{Date: "1941-09-08"}},
		{ID: "B", Type: types.NodeCaseStudy, Title: "Leningrad", Anchors: []string{"siege"}, Metadata: types.NodeMetadata{Date: "not a date"}},
		{ID: "C", Type: types.NodeLesson, Title: "Ghost 1", Anchors: []string{"siege"}, Metadata: types.NodeMetadata{Date: "1944-01-27"}},
	}
}

func TestRunIndexingScenario(t *testing.T) {
	res, err := RunIndexing(scenario())
	require.NoError(t, err)

	assert.Equal(t, []types.Edge{
		{Source: "A", Target: "B", Kind: types.EdgeExplicit, Weight: 1.0},
		{Source: "B", Target: "C", Kind: types.EdgeInferred, Weight: 1.0},
	}, res.Links.Edges)

	diag := res.EnhancedDiagnostics
	require.Len(t, diag.Repairs, 1)
	assert.Equal(t, types.Repair{SourceNodeID: "A", OriginalID: "ghost-1", RepairedID: "C", Confidence: diag.Repairs[0].Confidence}, diag.Repairs[0])
	assert.InDelta(t, 0.8, diag.Repairs[0].Confidence, 1e-9)
	assert.Empty(t, diag.BrokenLinks)
	assert.Equal(t, 100.0, diag.IntegrityScore)

	// The malformed date contributes nothing and is not an error.
	assert.NotContains(t, res.TemporalIndex.NodeTimeline, "B")
	assert.Len(t, res.TemporalIndex.Chronology, 2)

	// B and C differ in type and share their only anchor.
	require.Len(t, res.SemanticAnalysis.CrossDomainKnowledge, 1)
	assert.Equal(t, "B", res.SemanticAnalysis.CrossDomainKnowledge[0].SourceNodeID)
	require.Len(t, res.SemanticAnalysis.SemanticLayers, 1)
	assert.Equal(t, []string{"B", "C"}, res.SemanticAnalysis.SemanticLayers[0].MemberNodeIDs)

	assert.Equal(t, 3, res.NodeCount)
	assert.NotEmpty(t, res.Fingerprint)
}

func TestRunDeterministic(t *testing.T) {
	nodes := []types.Node{
		{ID: "cointelpro", Type: types.NodeCaseStudy, Title: "COINTELPRO", Anchors: []string{"surveillance", "infiltration"},
			Content: "The FBI ran COINTELPRO against the Black Panther Party. COINTELPRO counters the Black Panther Party.",
			LinksTo: []string{"church-committe"}, Metadata: types.NodeMetadata{Date: "1956-08-01"}},
		{ID: "church-committee", Type: types.NodeEvent, Title: "Church Committee", Anchors: []string{"oversight", "surveillance"},
			Content: "The Church Committee exposed COINTELPRO and the FBI.", Metadata: types.NodeMetadata{Date: "1975-01-27"}},
		{ID: "mockingbird", Type: types.NodeTactic, Title: "Operation Mockingbird", Anchors: []string{"media", "infiltration"},
			Content: "Operation Mockingbird placed assets in newsrooms.", LinksTo: []string{"nowhere"}},
	}

	first, err := RunIndexing(nodes)
	require.NoError(t, err)
	second, err := RunIndexing(nodes)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunValidationError(t *testing.T) {
	nodes := []types.Node{{ID: "a"}, {ID: ""}, {ID: "c"}}

	res, err := New(types.EngineConfig{}).Run(context.Background(), nodes)

	assert.Nil(t, res)
	var verr *snapshot.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, 1, verr.Index)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	nodes := scenario()
	before, err := json.Marshal(nodes)
	require.NoError(t, err)

	_, err = RunIndexing(nodes)
	require.NoError(t, err)

	after, err := json.Marshal(nodes)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(types.EngineConfig{}).Run(ctx, scenario())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelingObserver cancels the run once the named stage completes.
type cancelingObserver struct {
	recordingObserver
	after  string
	cancel context.CancelFunc
}

func (c *cancelingObserver) StageCompleted(stage string, d time.Duration) {
	c.recordingObserver.StageCompleted(stage, d)
	if stage == c.after {
		c.cancel()
	}
}

func TestRunCanceledBeforeAnalysis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &cancelingObserver{after: StageLinks, cancel: cancel}

	res, err := New(types.EngineConfig{}, WithObserver(obs)).Run(ctx, scenario())
	assert.Nil(t, res)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "running analysis stages")

	// No analysis stage starts, and diagnostics never runs.
	assert.Equal(t, []string{StageSnapshot, StageLinks}, obs.stages)
	assert.Zero(t, obs.runs)
}

func TestRunConcurrent(t *testing.T) {
	e := New(types.DefaultEngineConfig())
	want, err := e.Run(context.Background(), scenario())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodes := scenario()
			if i%2 == 1 {
				nodes = append(nodes, types.Node{ID: fmt.Sprintf("extra-%d", i)})
			}
			got, err := e.Run(context.Background(), nodes)
			if err != nil {
				errs <- err
				return
			}
			if i%2 == 0 && got.Fingerprint != want.Fingerprint {
				errs <- fmt.Errorf("run %d: fingerprint %s, want %s", i, got.Fingerprint, want.Fingerprint)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	runs   int
}

func (r *recordingObserver) StageCompleted(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingObserver) RunCompleted(*types.IndexingResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

func TestRunOptions(t *testing.T) {
	obs := &recordingObserver{}
	e := New(types.EngineConfig{},
		WithObserver(obs),
		WithExtractor(entity.ExtractorFunc(func(n types.Node) []types.Mention {
			return []types.Mention{{NodeID: n.ID, SurfaceForm: "Everything", EntityType: types.EntityConcept}}
		})),
		WithScorer(diagnostics.ScorerFunc(func(types.DanglingRef, types.Node, types.Node) float64 { return 0 })),
	)

	res, err := e.Run(context.Background(), scenario())
	require.NoError(t, err)

	require.Len(t, res.EntityResolution.Entities, 1)
	assert.Len(t, res.EntityResolution.Entities[0].Mentions, 3)
	assert.Empty(t, res.EnhancedDiagnostics.Repairs)
	require.Len(t, res.EnhancedDiagnostics.BrokenLinks, 1)
	assert.InDelta(t, 50.0, res.EnhancedDiagnostics.IntegrityScore, 1e-9)

	assert.Equal(t, 1, obs.runs)
	assert.ElementsMatch(t, []string{
		StageSnapshot, StageLinks, StageTemporal, StageEntity, StageSemantic, StageDiagnostics,
	}, obs.stages)
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New(types.EngineConfig{}).Config()
	assert.Equal(t, types.DefaultRepairThreshold, *cfg.Diagnostics.RepairThreshold)
	assert.Equal(t, types.DefaultCrossDomainThreshold, *cfg.Semantic.CrossDomainThreshold)
	assert.Equal(t, types.DefaultMaxEditDistance, *cfg.Entity.MaxEditDistance)
}

func TestExplicitZeroThresholdKept(t *testing.T) {
	nodes := []types.Node{
		{ID: "a", Type: types.NodeTactic, Anchors: []string{"x", "y", "z"}},
		{ID: "b", Type: types.NodeLesson, Anchors: []string{"z", "w"}},
	}

	res, err := RunIndexing(nodes)
	require.NoError(t, err)
	assert.Empty(t, res.SemanticAnalysis.CrossDomainKnowledge, "weight 0.25 is under the default threshold")

	cfg := types.EngineConfig{Semantic: types.SemanticConfig{CrossDomainThreshold: types.Float64(0)}}
	e := New(cfg)
	assert.Equal(t, 0.0, *e.Config().Semantic.CrossDomainThreshold)

	res, err = e.Run(context.Background(), nodes)
	require.NoError(t, err)
	require.Len(t, res.SemanticAnalysis.CrossDomainKnowledge, 1)
	assert.InDelta(t, 0.25, res.SemanticAnalysis.CrossDomainKnowledge[0].Score, 1e-9)
}
