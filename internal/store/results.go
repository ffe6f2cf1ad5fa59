// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// ErrNoRuns is returned when no indexing run has been stored.
var ErrNoRuns = errors.New("no indexing runs stored")

// RunRecord is the metadata row kept for each stored indexing run.
type RunRecord struct {
	Fingerprint       string    `json:"fingerprint" yaml:"fingerprint"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	NodeCount         int       `json:"node_count" yaml:"node_count"`
	EdgeCount         int       `json:"edge_count" yaml:"edge_count"`
	IntegrityScore    float64   `json:"integrity_score" yaml:"integrity_score"`
	ConnectionDensity float64   `json:"connection_density" yaml:"connection_density"`
	DensityLabel      string    `json:"density_label" yaml:"density_label"`
	TotalReferences   int       `json:"total_references" yaml:"total_references"`
	RepairCount       int       `json:"repair_count" yaml:"repair_count"`
	BrokenCount       int       `json:"broken_count" yaml:"broken_count"`
	EntityCount       int       `json:"entity_count" yaml:"entity_count"`
	LayerCount        int       `json:"layer_count" yaml:"layer_count"`
}

// SaveResult stores the derived tables of result under its fingerprint.
// A result whose fingerprint is already stored is skipped and reported as
// not saved.
func (s *Store) SaveResult(ctx context.Context, result *types.IndexingResult) (bool, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM index_runs WHERE fingerprint = ?`, result.Fingerprint,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking index run: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	fp := result.Fingerprint
	diag := result.EnhancedDiagnostics
	_, err = tx.ExecContext(ctx,
		`INSERT INTO index_runs (fingerprint, created_at, node_count, edge_count, integrity_score,
			connection_density, density_label, total_references, repair_count, broken_count,
			entity_count, layer_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fp, time.Now().UTC().Format(time.RFC3339Nano), result.NodeCount, len(result.Links.Edges),
		diag.IntegrityScore, diag.ConnectionDensity, diag.DensityLabel, diag.TotalReferences,
		len(diag.Repairs), len(diag.BrokenLinks),
		len(result.EntityResolution.Entities), len(result.SemanticAnalysis.SemanticLayers),
	)
	if err != nil {
		return false, fmt.Errorf("inserting index run: %w", err)
	}

	for _, e := range result.Links.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (fingerprint, source, target, kind, weight) VALUES (?, ?, ?, ?, ?)`,
			fp, e.Source, e.Target, string(e.Kind), e.Weight,
		); err != nil {
			return false, fmt.Errorf("inserting edge %s-%s: %w", e.Source, e.Target, err)
		}
	}

	for _, r := range diag.Repairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO repairs (fingerprint, source_node_id, original_id, repaired_id, confidence)
			 VALUES (?, ?, ?, ?, ?)`,
			fp, r.SourceNodeID, r.OriginalID, r.RepairedID, r.Confidence,
		); err != nil {
			return false, fmt.Errorf("inserting repair %s: %w", r.OriginalID, err)
		}
	}

	for _, b := range diag.BrokenLinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO broken_links (fingerprint, source_node_id, original_id, best_candidate, best_score)
			 VALUES (?, ?, ?, ?, ?)`,
			fp, b.SourceNodeID, b.OriginalID, b.BestCandidate, b.BestScore,
		); err != nil {
			return false, fmt.Errorf("inserting broken link %s: %w", b.OriginalID, err)
		}
	}

	for _, e := range result.EntityResolution.Entities {
		mentions, _ := json.Marshal(e.Mentions)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (fingerprint, id, primary_name, entity_type, confidence, mentions)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			fp, e.ID, e.PrimaryName, e.EntityType, e.Confidence, string(mentions),
		); err != nil {
			return false, fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
	}

	for _, r := range result.EntityResolution.Relationships {
		evidence, _ := json.Marshal(r.Evidence)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relationships (fingerprint, entity_a, entity_b, relation_type, support_count, evidence)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			fp, r.EntityA, r.EntityB, r.RelationType, r.SupportCount, string(evidence),
		); err != nil {
			return false, fmt.Errorf("inserting relationship: %w", err)
		}
	}

	for _, l := range result.SemanticAnalysis.SemanticLayers {
		concepts, _ := json.Marshal(l.Concepts)
		members, _ := json.Marshal(l.MemberNodeIDs)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layers (fingerprint, anchor, layer_type, cohesion, concepts, members)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			fp, l.Anchor, l.LayerType, l.Cohesion, string(concepts), string(members),
		); err != nil {
			return false, fmt.Errorf("inserting layer %s: %w", l.Anchor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing index run: %w", err)
	}
	return true, nil
}

// LatestRun returns the most recently stored run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	var (
		r       RunRecord
		created string
		label   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, created_at, node_count, edge_count, integrity_score, connection_density,
			density_label, total_references, repair_count, broken_count, entity_count, layer_count
		 FROM index_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&r.Fingerprint, &created, &r.NodeCount, &r.EdgeCount, &r.IntegrityScore,
		&r.ConnectionDensity, &label, &r.TotalReferences, &r.RepairCount, &r.BrokenCount,
		&r.EntityCount, &r.LayerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNoRuns
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("querying latest run: %w", err)
	}
	r.DensityLabel = label.String
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return r, nil
}

// PendingRepairs returns the unapplied repairs of the run with the given
// fingerprint, in report order.
func (s *Store) PendingRepairs(ctx context.Context, fingerprint string) ([]types.Repair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_node_id, original_id, repaired_id, confidence
		 FROM repairs WHERE fingerprint = ? AND applied = 0 ORDER BY rowid`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("querying repairs: %w", err)
	}
	defer rows.Close()

	var out []types.Repair
	for rows.Next() {
		var r types.Repair
		if err := rows.Scan(&r.SourceNodeID, &r.OriginalID, &r.RepairedID, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scanning repair: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyRepairs rewrites the links_to reference of each repair's source node
// from the original ID to the repaired ID. Node content is untouched. It
// returns the number of references rewritten.
func (s *Store) ApplyRepairs(ctx context.Context, repairs []types.Repair) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, r := range repairs {
		var links sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT links_to FROM nodes WHERE id = ?`, r.SourceNodeID).Scan(&links)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("loading node %s: %w", r.SourceNodeID, err)
		}

		rewritten, changed := rewriteLinks(decodeList(links), r.OriginalID, r.RepairedID)
		if !changed {
			continue
		}
		data, _ := json.Marshal(rewritten)
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET links_to = ? WHERE id = ?`, string(data), r.SourceNodeID,
		); err != nil {
			return applied, fmt.Errorf("rewriting links of %s: %w", r.SourceNodeID, err)
		}
		// The stored hash no longer describes this node.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ingest_status WHERE node_id = ?`, r.SourceNodeID,
		); err != nil {
			return applied, fmt.Errorf("resetting ingest status of %s: %w", r.SourceNodeID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE repairs SET applied = 1 WHERE source_node_id = ? AND original_id = ?`,
			r.SourceNodeID, r.OriginalID,
		); err != nil {
			return applied, fmt.Errorf("marking repair applied: %w", err)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing repairs: %w", err)
	}
	return applied, nil
}

// rewriteLinks replaces every from entry with to in place. Other entries,
// repeats included, are kept as declared so the reference count is
// unchanged.
func rewriteLinks(links []string, from, to string) ([]string, bool) {
	out := make([]string, len(links))
	changed := false
	for i, l := range links {
		if l == from {
			l = to
			changed = true
		}
		out[i] = l
	}
	return out, changed
}
