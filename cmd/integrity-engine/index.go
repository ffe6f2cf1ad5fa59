// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/integrity-engine/internal/cache"
	"github.com/pdiddy/integrity-engine/internal/corpus"
	"github.com/pdiddy/integrity-engine/internal/indexing"
	"github.com/pdiddy/integrity-engine/internal/metrics"
	"github.com/pdiddy/integrity-engine/internal/report"
	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/internal/store"
	"github.com/pdiddy/integrity-engine/internal/watch"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index [corpus]",
	Short: "Index a corpus and report its integrity",
	Long: `Index loads a corpus (a JSON or YAML node list, a Markdown note, or a
directory of them) and runs the full indexing pipeline: link resolution,
temporal indexing, entity resolution, semantic analysis, and integrity
diagnostics with reference repair.

Use --from-store to index the nodes held in the SQLite store instead of a
corpus path, --persist to ingest the corpus and save the result there
(adding --prune drops stored nodes the corpus no longer has), and --watch
to re-index whenever the corpus changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

// indexRun holds what one invocation of index needs across re-runs.
type indexRun struct {
	cfg       types.Config
	path      string
	fromStore bool
	persist   bool
	prune     bool
	format    string
	out       string
	metricsTo string
	collector *metrics.Collector
	engine    *indexing.Engine
	cache     *cache.Cache
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	r := &indexRun{cfg: cfg, collector: metrics.NewCollector()}
	r.fromStore, _ = cmd.Flags().GetBool("from-store")
	r.persist, _ = cmd.Flags().GetBool("persist")
	r.prune, _ = cmd.Flags().GetBool("prune")
	r.format, _ = cmd.Flags().GetString("format")
	r.out, _ = cmd.Flags().GetString("out")
	r.metricsTo, _ = cmd.Flags().GetString("metrics-file")
	watchMode, _ := cmd.Flags().GetBool("watch")

	switch {
	case len(args) == 1 && r.fromStore:
		return fmt.Errorf("give a corpus path or --from-store, not both")
	case len(args) == 1:
		r.path = args[0]
	case !r.fromStore:
		return fmt.Errorf("corpus path required (or use --from-store)")
	}
	if r.prune && (!r.persist || r.fromStore) {
		return fmt.Errorf("--prune needs --persist with a corpus path")
	}
	if watchMode && r.path == "" {
		return fmt.Errorf("--watch needs a corpus path")
	}

	r.engine = indexing.New(cfg.Engine,
		indexing.WithLogger(logger),
		indexing.WithObserver(r.collector),
	)

	if cfg.Cache.Dir != "" {
		c, err := cache.Open(cache.Options{Dir: cfg.Cache.Dir})
		if err != nil {
			return err
		}
		defer c.Close()
		r.cache = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.once(ctx); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}

	w := watch.New(r.path, 0, logger)
	return w.Run(ctx, func() {
		if err := r.once(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("re-indexing failed", zap.Error(err))
		}
	})
}

// once loads the nodes, indexes them (or reuses a cached result), and
// writes every requested output.
func (r *indexRun) once(ctx context.Context) error {
	nodes, err := r.loadNodes(ctx)
	if err != nil {
		return err
	}

	result, err := r.index(ctx, nodes)
	if err != nil {
		return err
	}

	if r.persist {
		if err := r.save(ctx, nodes, result); err != nil {
			return err
		}
	}

	if err := r.writeReport(result); err != nil {
		return err
	}

	if r.metricsTo != "" {
		if err := r.collector.WriteTextfile(r.metricsTo); err != nil {
			return err
		}
		logger.Debug("wrote metrics", zap.String("path", r.metricsTo))
	}
	return nil
}

func (r *indexRun) loadNodes(ctx context.Context) ([]types.Node, error) {
	if !r.fromStore {
		return corpus.Load(r.path)
	}
	s, err := store.NewStore(r.cfg.Store)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadNodes(ctx)
}

func (r *indexRun) index(ctx context.Context, nodes []types.Node) (*types.IndexingResult, error) {
	if r.cache == nil {
		return r.engine.Run(ctx, nodes)
	}

	snap, err := snapshot.New(nodes)
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	fp := snap.Fingerprint()

	cached, ok, err := r.cache.Get(fp, r.engine.Config())
	if err != nil {
		logger.Warn("reading result cache", zap.Error(err))
	}
	r.collector.CacheLookup(ok)
	if ok {
		logger.Info("using cached result", zap.String("fingerprint", fp))
		r.collector.RunCompleted(cached)
		return cached, nil
	}

	result, err := r.engine.Run(ctx, nodes)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Put(result, r.engine.Config()); err != nil {
		logger.Warn("writing result cache", zap.Error(err))
	}
	return result, nil
}

func (r *indexRun) save(ctx context.Context, nodes []types.Node, result *types.IndexingResult) error {
	s, err := store.NewStore(r.cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	if !r.fromStore {
		summary, err := s.IngestNodes(ctx, nodes, os.Stderr)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d node(s) failed ingestion", summary.Failed)
		}
		if r.prune {
			if _, err := s.PruneNodes(ctx, nodeIDs(nodes), os.Stderr); err != nil {
				return err
			}
		}
	}

	saved, err := s.SaveResult(ctx, result)
	if err != nil {
		return err
	}
	if saved {
		logger.Info("saved index run", zap.String("fingerprint", result.Fingerprint))
	} else {
		logger.Info("index run already stored", zap.String("fingerprint", result.Fingerprint))
	}
	return nil
}

func (r *indexRun) writeReport(result *types.IndexingResult) error {
	var w io.Writer = os.Stdout
	if r.out != "" {
		f, err := os.Create(r.out)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return report.Write(w, result, r.format)
}

func init() {
	f := indexCmd.Flags()
	f.String("store-dir", "graph", "store base directory (database at <dir>/index/graph.db)")
	f.Bool("from-store", false, "index the nodes held in the store instead of a corpus path")
	f.Bool("persist", false, "ingest the corpus into the store and save the result")
	f.Bool("prune", false, "with --persist, delete stored nodes that are not in the corpus")
	f.String("cache-dir", "", "badger result cache directory (empty disables caching)")
	f.StringP("format", "f", report.FormatNameTable, "output format: table, json, yaml, or mermaid")
	f.StringP("out", "o", "", "write the report to a file instead of stdout")
	f.String("metrics-file", "", "write Prometheus metrics in text exposition format to this file")
	f.BoolP("watch", "w", false, "re-index when the corpus changes")

	f.Float64("repair-threshold", types.DefaultRepairThreshold, "minimum score for an automatic repair")
	f.Float64("cross-domain-threshold", types.DefaultCrossDomainThreshold, "inferred-edge weight a cross-type pair must exceed")
	f.Int("max-edit-distance", types.DefaultMaxEditDistance, "largest edit distance that merges entity surface forms")
	f.Bool("scan-content", false, "add timeline events for ISO dates found in node content")

	rootCmd.AddCommand(indexCmd)
}
