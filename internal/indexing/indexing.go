// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package indexing runs the full indexing pipeline over one corpus snapshot:
// link resolution, then temporal, entity, and semantic analysis in parallel,
// then the integrity audit. Each run is independent; an Engine holds only
// configuration and may be shared across goroutines.
package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/integrity-engine/internal/diagnostics"
	"github.com/pdiddy/integrity-engine/internal/entity"
	"github.com/pdiddy/integrity-engine/internal/links"
	"github.com/pdiddy/integrity-engine/internal/semantic"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/internal/temporal"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Stage names reported to observers.
const (
	StageSnapshot    = "snapshot"
	StageLinks       = "links"
	StageTemporal    = "temporal"
	StageEntity      = "entity"
	StageSemantic    = "semantic"
	StageDiagnostics = "diagnostics"
)

// Observer receives stage timings and the finished result. StageCompleted
// is called from the goroutine that ran the stage, so implementations must
// be safe for concurrent use.
type Observer interface {
	StageCompleted(stage string, d time.Duration)
	RunCompleted(result *types.IndexingResult)
}

type nopObserver struct{}

func (nopObserver) StageCompleted(string, time.Duration) {}
func (nopObserver) RunCompleted(*types.IndexingResult) {}

// Engine runs indexing passes.
type Engine struct {
	cfg       types.EngineConfig
	extractor entity.Extractor
	scorer    diagnostics.Scorer
	logger    *zap.Logger
	observer  Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor replaces the entity mention extractor.
func WithExtractor(x entity.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithScorer replaces the repair candidate scorer.
func WithScorer(s diagnostics.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers an observer for stage timings and results.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New returns an Engine for cfg. Zero-valued settings take their defaults.
func New(cfg types.EngineConfig, opts ...Option) *Engine {
	cfg = cfg.WithDefaults()
	e := &Engine{
		cfg:       cfg,
		extractor: entity.PatternExtractor{},
		scorer:    diagnostics.NewHybridScorer(cfg.Diagnostics),
		logger:    zap.NewNop(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() types.EngineConfig { return e.cfg }

// RunIndexing indexes nodes with the default configuration.
func RunIndexing(nodes []types.Node) (*types.IndexingResult, error) {
	return New(types.DefaultEngineConfig()).Run(context.Background(), nodes)
}

// Run indexes nodes. An invalid node fails the run with a
// *snapshot.ValidationError and no result. Cancellation is checked before
// each stage; a stage in progress always completes. The temporal, entity,
// and semantic stages run concurrently and a failure in one stops the
// others that have not started.
func (e *Engine) Run(ctx context.Context, nodes []types.Node) (*types.IndexingResult, error) {
	log := e.logger
	start := time.Now()

	snap, err := timed(ctx, e, StageSnapshot, func() (*snapshot.Snapshot, error) { return snapshot.New(nodes) })
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	log.Debug("snapshot built", zap.Int("nodes", snap.Len()))

	linkSet, err := timed(ctx, e, StageLinks, func() (types.LinkSet, error) { return links.Resolve(snap), nil })
	if err != nil {
		return nil, fmt.Errorf("resolving links: %w", err)
	}
	log.Debug("links resolved",
		zap.Int("explicit", linkSet.Explicit()),
		zap.Int("inferred", linkSet.Inferred()),
		zap.Int("dangling", len(linkSet.Dangling)))

	var (
		temporalIndex types.TemporalIndex
		resolution    types.EntityResolution
		analysis      types.SemanticAnalysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		temporalIndex, err = timed(gctx, e, StageTemporal, func() (types.TemporalIndex, error) {
			return temporal.Index(snap, e.cfg.Temporal), nil
		})
		return err
	})
	g.Go(func() error {
		resolver := &entity.Resolver{
			Extractor:       e.extractor,
			MaxEditDistance: e.cfg.Entity.EditDistance(),
			Logger:          log,
		}
		var err error
		resolution, err = timed(gctx, e, StageEntity, func() (types.EntityResolution, error) {
			return resolver.Resolve(snap), nil
		})
		return err
	})
	g.Go(func() error {
		var err error
		analysis, err = timed(gctx, e, StageSemantic, func() (types.SemanticAnalysis, error) {
			return semantic.Analyze(snap, linkSet, e.cfg.Semantic), nil
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running analysis stages: %w", err)
	}

	audit := &diagnostics.Engine{
		Scorer:          e.scorer,
		RepairThreshold: e.cfg.Diagnostics.Threshold(),
		Logger:          log,
	}
	report, err := timed(ctx, e, StageDiagnostics, func() (types.DiagnosticsReport, error) {
		return audit.Diagnose(snap, linkSet, analysis.SemanticLayers), nil
	})
	if err != nil {
		return nil, fmt.Errorf("running diagnostics: %w", err)
	}

	result := &types.IndexingResult{
		Fingerprint:         snap.Fingerprint(),
		NodeCount:           snap.Len(),
		Links:               linkSet,
		TemporalIndex:       temporalIndex,
		EntityResolution:    resolution,
		SemanticAnalysis:    analysis,
		EnhancedDiagnostics: report,
	}

	log.Info("indexing complete",
		zap.Int("nodes", result.NodeCount),
		zap.Int("edges", len(linkSet.Edges)),
		zap.Int("entities", len(resolution.Entities)),
		zap.Int("layers", len(analysis.SemanticLayers)),
		zap.Int("repairs", len(report.Repairs)),
		zap.Int("broken", len(report.BrokenLinks)),
		zap.Float64("integrity_score", report.IntegrityScore),
		zap.Duration("elapsed", time.Since(start)))
	e.observer.RunCompleted(result)
	return result, nil
}

// timed runs fn unless ctx is already done, and reports its duration to
// the observer. A skipped stage is not reported.
func timed[T any](ctx context.Context, e *Engine, stage string, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, fmt.Errorf("%s stage: %w", stage, err)
	}
	start := time.Now()
	v, err := fn()
	e.observer.StageCompleted(stage, time.Since(start))
	return v, err
}
