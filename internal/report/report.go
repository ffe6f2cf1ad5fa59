// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders indexing results for people and tools.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Formats accepted by Write.
const (
	FormatNameTable   = "table"
	FormatNameJSON    = "json"
	FormatNameYAML    = "yaml"
	FormatNameMermaid = "mermaid"
)

// Write renders result in the named format.
func Write(w io.Writer, result *types.IndexingResult, format string) error {
	switch format {
	case "", FormatNameTable:
		FormatTable(result, w)
		return nil
	case FormatNameJSON:
		return FormatJSON(result, w)
	case FormatNameYAML:
		return FormatYAML(result, w)
	case FormatNameMermaid:
		FormatMermaid(result, w)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, json, yaml, or mermaid)", format)
	}
}

// FormatTable writes a human-readable summary of result to w.
func FormatTable(result *types.IndexingResult, w io.Writer) {
	diag := result.EnhancedDiagnostics

	fmt.Fprintf(w, "Corpus %s (%d nodes)\n", shortFingerprint(result.Fingerprint), result.NodeCount)
	fmt.Fprintf(w, "Integrity score:    %.1f\n", diag.IntegrityScore)
	fmt.Fprintf(w, "Connection density: %.3f (%s)\n", diag.ConnectionDensity, diag.DensityLabel)
	fmt.Fprintf(w, "References:         %d total, %d valid, %d repaired, %d broken\n",
		diag.TotalReferences, diag.ValidReferences, len(diag.Repairs), len(diag.BrokenLinks))
	fmt.Fprintf(w, "Edges:              %d explicit, %d inferred\n", result.Links.Explicit(), result.Links.Inferred())
	fmt.Fprintf(w, "Timeline events:    %d\n", len(result.TemporalIndex.Chronology))
	fmt.Fprintf(w, "Entities:           %d (%d relationships)\n",
		len(result.EntityResolution.Entities), len(result.EntityResolution.Relationships))
	fmt.Fprintf(w, "Semantic layers:    %d (coverage %.0f%%)\n",
		len(result.SemanticAnalysis.SemanticLayers), diag.LayerCoverage*100)
	fmt.Fprintf(w, "Cross-domain links: %d\n", len(result.SemanticAnalysis.CrossDomainKnowledge))

	if len(diag.Repairs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-24s  %-24s  %-24s  %s\n", "Source", "Original", "Repaired", "Confidence")
		fmt.Fprintln(w, strings.Repeat("-", 88))
		for _, r := range diag.Repairs {
			fmt.Fprintf(w, "%-24s  %-24s  %-24s  %.2f\n",
				Truncate(r.SourceNodeID, 24), Truncate(r.OriginalID, 24), Truncate(r.RepairedID, 24), r.Confidence)
		}
	}

	if len(diag.BrokenLinks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-24s  %-24s  %-24s  %s\n", "Source", "Broken", "Closest", "Score")
		fmt.Fprintln(w, strings.Repeat("-", 88))
		for _, b := range diag.BrokenLinks {
			fmt.Fprintf(w, "%-24s  %-24s  %-24s  %.2f\n",
				Truncate(b.SourceNodeID, 24), Truncate(b.OriginalID, 24), Truncate(b.BestCandidate, 24), b.BestScore)
		}
	}

	if len(diag.IsolatedNodes) > 0 {
		fmt.Fprintf(w, "\nIsolated: %s\n", strings.Join(diag.IsolatedNodes, ", "))
	}
}

// FormatJSON writes result as indented JSON to w.
func FormatJSON(result *types.IndexingResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// FormatYAML writes result as YAML to w.
func FormatYAML(result *types.IndexingResult, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// FormatMermaid writes the link graph as a Mermaid flowchart. Explicit
// edges are solid, inferred edges dotted with their weight, and repairs
// dashed arrows labeled with their confidence. A node whose ID is not a
// plain Mermaid identifier carries its original ID as a quoted label.
func FormatMermaid(result *types.IndexingResult, w io.Writer) {
	fmt.Fprintln(w, "graph TD")
	for _, e := range result.Links.Edges {
		src, dst := mermaidNode(e.Source), mermaidNode(e.Target)
		if e.Kind == types.EdgeInferred {
			fmt.Fprintf(w, "  %s -. %.2f .- %s\n", src, e.Weight, dst)
			continue
		}
		fmt.Fprintf(w, "  %s --> %s\n", src, dst)
	}
	for _, r := range result.EnhancedDiagnostics.Repairs {
		fmt.Fprintf(w, "  %s -. repaired %.2f .-> %s\n", mermaidNode(r.SourceNodeID), r.Confidence, mermaidNode(r.RepairedID))
	}
	for _, b := range result.EnhancedDiagnostics.BrokenLinks {
		fmt.Fprintf(w, "  %s --x %s\n", mermaidNode(b.SourceNodeID), mermaidNode(b.OriginalID))
	}
}

// mermaidNode returns the node reference for id, with a label when the
// identifier alone would not show the original ID.
func mermaidNode(id string) string {
	mid := MermaidID(id)
	if mid == id {
		return mid
	}
	label := id
	if label == "" {
		label = "(empty)"
	}
	return mid + `["` + labelEscaper.Replace(label) + `"]`
}

var labelEscaper = strings.NewReplacer("#", "#35;", `"`, "#quot;")

// MermaidID turns a node ID into a Mermaid-safe identifier. IDs made only of
// ASCII letters, digits, and single underscores are used as they are. Any
// other ID is sanitized and suffixed with "__" and a hash of the original,
// so distinct IDs never share an identifier.
func MermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	clean := b.String()
	if clean == id && id != "" && id != "end" && !strings.Contains(id, "__") {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return clean + "__" + hex.EncodeToString(sum[:4])
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
