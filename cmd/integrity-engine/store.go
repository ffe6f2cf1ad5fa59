// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/integrity-engine/internal/corpus"
	"github.com/pdiddy/integrity-engine/internal/report"
	"github.com/pdiddy/integrity-engine/internal/store"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the node store (ingest, search, apply-repairs, status, export)",
	Long: `Store manages a local SQLite database of knowledge nodes and the
results of past indexing runs. Use subcommands to ingest a corpus, search
it, apply suggested repairs, inspect the latest run, or export the nodes.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest <corpus>",
	Short: "Ingest a corpus into the store",
	Long: `Ingest loads a corpus and writes its nodes into the store with FTS5
indexing. Unchanged nodes are skipped on subsequent runs. With --prune,
stored nodes that are no longer in the corpus are deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	nodes, err := corpus.Load(args[0])
	if err != nil {
		return err
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	summary, err := s.IngestNodes(ctx, nodes, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d node(s) failed ingestion", summary.Failed)
	}
	if prune, _ := cmd.Flags().GetBool("prune"); prune {
		_, err = s.PruneNodes(ctx, nodeIDs(nodes), os.Stdout)
	}
	return err
}

// nodeIDs returns the IDs of nodes in order.
func nodeIDs(nodes []types.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// --- search subcommand ---

var storeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored nodes with full-text search and filters",
	Long: `Search queries the store using FTS5 full-text search over titles and
content, structured filters (--type, --anchor), or both.`,
	RunE: runStoreSearch,
}

func runStoreSearch(cmd *cobra.Command, args []string) error {
	nodeType, _ := cmd.Flags().GetString("type")
	anchors, _ := cmd.Flags().GetStringSlice("anchor")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.SearchOptions{
		Query:      strings.Join(args, " "),
		Type:       types.NodeType(nodeType),
		Anchors:    anchors,
		MaxResults: limit,
	}
	if opts.Query == "" && opts.Type == "" && len(opts.Anchors) == 0 {
		return fmt.Errorf("query or filter required: provide a search query, --type, or --anchor")
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []store.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-24s  %-12s  %-40s  %s\n", "Rank", "ID", "Type", "Title", "Anchors")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-24s  %-12s  %-40s  %s\n",
			i+1, report.Truncate(r.ID, 24), report.Truncate(string(r.Type), 12), report.Truncate(r.Title, 40), strings.Join(r.Anchors, ","))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- apply-repairs subcommand ---

var storeApplyCmd = &cobra.Command{
	Use:   "apply-repairs",
	Short: "Rewrite repaired references in stored nodes",
	Long: `Apply-repairs takes the pending repairs of the latest stored run and
rewrites each source node's reference from the original ID to the repaired
ID. Node content is untouched. Use --dry-run to list the repairs only.`,
	RunE: runStoreApply,
}

func runStoreApply(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	run, err := s.LatestRun(ctx)
	if errors.Is(err, store.ErrNoRuns) {
		return fmt.Errorf("no stored runs: run `integrity-engine index --persist` first")
	}
	if err != nil {
		return err
	}

	repairs, err := s.PendingRepairs(ctx, run.Fingerprint)
	if err != nil {
		return err
	}
	if len(repairs) == 0 {
		fmt.Println("No pending repairs.")
		return nil
	}

	for _, r := range repairs {
		fmt.Printf("%s: %s -> %s (%.2f)\n", r.SourceNodeID, r.OriginalID, r.RepairedID, r.Confidence)
	}
	if dryRun {
		return nil
	}

	n, err := s.ApplyRepairs(ctx, repairs)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d of %d repairs\n", n, len(repairs))
	return nil
}

// --- status subcommand ---

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest stored indexing run",
	RunE:  runStoreStatus,
}

func runStoreStatus(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.LatestRun(context.Background())
	if errors.Is(err, store.ErrNoRuns) {
		fmt.Println("No indexing runs stored.")
		return nil
	}
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("Fingerprint:        %s\n", run.Fingerprint)
	fmt.Printf("Indexed at:         %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Nodes / edges:      %d / %d\n", run.NodeCount, run.EdgeCount)
	fmt.Printf("Integrity score:    %.1f\n", run.IntegrityScore)
	fmt.Printf("Connection density: %.3f (%s)\n", run.ConnectionDensity, run.DensityLabel)
	fmt.Printf("References:         %d total, %d repaired, %d broken\n", run.TotalReferences, run.RepairCount, run.BrokenCount)
	fmt.Printf("Entities / layers:  %d / %d\n", run.EntityCount, run.LayerCount)
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored nodes to YAML or JSON",
	Long: `Export writes every stored node, with any applied repairs, to
<store-dir>/index/nodes.yaml or nodes.json. The file is itself a corpus
that index accepts.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = s.ExportYAML(context.Background())
	case "json":
		path, err = s.ExportJSON(context.Background())
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("max-results") {
		cfg.Store.SearchLimit, _ = cmd.Flags().GetInt("max-results")
	}
	return store.NewStore(cfg.Store)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("store-dir", "graph", "store base directory (database at <dir>/index/graph.db)")
	storeCmd.PersistentFlags().Int("max-results", 20, "default maximum number of search results")

	storeIngestCmd.Flags().Bool("prune", false, "delete stored nodes that are not in the corpus")

	storeSearchCmd.Flags().String("type", "", "filter by node type")
	storeSearchCmd.Flags().StringSlice("anchor", nil, "filter by anchor (repeatable, all must match)")
	storeSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeSearchCmd.Flags().Bool("json", false, "output results as JSON")

	storeApplyCmd.Flags().Bool("dry-run", false, "list pending repairs without applying them")

	storeStatusCmd.Flags().Bool("json", false, "output the run as JSON")

	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeSearchCmd)
	storeCmd.AddCommand(storeApplyCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
