// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists corpus nodes and indexing results in SQLite and
// serves full-text search over node text. It is the content store that
// feeds the engine a read snapshot and optionally applies proposed repairs.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "graph.db"
)

// Store manages the content store SQLite database.
type Store struct {
	db          *sql.DB
	dir         string
	searchLimit int
}

// NewStore opens or creates the database at cfg.Dir/index/graph.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = 20
	}

	s := &Store{db: db, dir: cfg.Dir, searchLimit: limit}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			ordinal INTEGER NOT NULL,
			type TEXT,
			title TEXT,
			excerpt TEXT,
			content TEXT,
			themes TEXT,
			anchors TEXT,
			links_to TEXT,
			date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_ordinal ON nodes(ordinal)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			node_id TEXT PRIMARY KEY,
			content_hash TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS index_runs (
			fingerprint TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			node_count INTEGER,
			edge_count INTEGER,
			integrity_score REAL,
			connection_density REAL,
			density_label TEXT,
			total_references INTEGER,
			repair_count INTEGER,
			broken_count INTEGER,
			entity_count INTEGER,
			layer_count INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			kind TEXT NOT NULL,
			weight REAL
		)`,
		`CREATE TABLE IF NOT EXISTS repairs (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			source_node_id TEXT NOT NULL,
			original_id TEXT NOT NULL,
			repaired_id TEXT NOT NULL,
			confidence REAL,
			applied INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS broken_links (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			source_node_id TEXT NOT NULL,
			original_id TEXT NOT NULL,
			best_candidate TEXT,
			best_score REAL
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			id TEXT NOT NULL,
			primary_name TEXT,
			entity_type TEXT,
			confidence REAL,
			mentions TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			entity_a TEXT NOT NULL,
			entity_b TEXT NOT NULL,
			relation_type TEXT,
			support_count INTEGER,
			evidence TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS layers (
			fingerprint TEXT NOT NULL REFERENCES index_runs(fingerprint) ON DELETE CASCADE,
			anchor TEXT NOT NULL,
			layer_type TEXT,
			cohesion REAL,
			concepts TEXT,
			members TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_fingerprint ON edges(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_repairs_fingerprint ON repairs(fingerprint)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='nodes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE nodes_fts USING fts5(title, content, content=nodes, content_rowid=rowid)`,
			`CREATE TRIGGER nodes_ai AFTER INSERT ON nodes BEGIN
				INSERT INTO nodes_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER nodes_ad AFTER DELETE ON nodes BEGIN
				INSERT INTO nodes_fts(nodes_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER nodes_au AFTER UPDATE ON nodes BEGIN
				INSERT INTO nodes_fts(nodes_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
				INSERT INTO nodes_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from one ingest pass.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of nodes processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// IngestNodes upserts nodes in the given order. A node whose content hash
// matches the stored one is skipped; its ordinal is still refreshed so
// LoadNodes returns the latest corpus order. Progress lines go to w.
func (s *Store) IngestNodes(ctx context.Context, nodes []types.Node, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for i, n := range nodes {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if n.ID == "" {
			fmt.Fprintf(w, "failed  node %d: missing id\n", i)
			summary.Failed++
			continue
		}

		hash, err := nodeHash(n)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", n.ID, err)
			summary.Failed++
			continue
		}

		var storedHash string
		err = s.db.QueryRowContext(ctx,
			`SELECT content_hash FROM ingest_status WHERE node_id = ?`, n.ID,
		).Scan(&storedHash)

		if err == nil && storedHash == hash {
			if _, err := s.db.ExecContext(ctx, `UPDATE nodes SET ordinal = ? WHERE id = ?`, i, n.ID); err != nil {
				return summary, fmt.Errorf("updating ordinal for %s: %w", n.ID, err)
			}
			fmt.Fprintf(w, "skipped %s\n", n.ID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil
		if err := s.ingestNode(ctx, i, n, hash); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", n.ID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", n.ID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s\n", n.ID)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

// PruneNodes deletes every stored node whose ID is not in keep, along with
// its ingest status, so the store matches a corpus from which nodes were
// removed. It returns the number of nodes deleted. Stored runs are left as
// they are.
func (s *Store) PruneNodes(ctx context.Context, keep []string, w io.Writer) (int, error) {
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM nodes ORDER BY ordinal, rowid`)
	if err != nil {
		return 0, fmt.Errorf("querying node ids: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning node id: %w", err)
		}
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("querying node ids: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting node %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ingest_status WHERE node_id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting ingest status for %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}

	for _, id := range stale {
		fmt.Fprintf(w, "pruned  %s\n", id)
	}
	fmt.Fprintf(w, "pruned: %d\n", len(stale))
	return len(stale), nil
}

func (s *Store) ingestNode(ctx context.Context, ordinal int, n types.Node, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNode(ctx, tx, ordinal, n); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (node_id, content_hash) VALUES (?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET content_hash=excluded.content_hash`,
		n.ID, hash,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}

func upsertNode(ctx context.Context, tx *sql.Tx, ordinal int, n types.Node) error {
	themes, _ := json.Marshal(n.Themes)
	anchors, _ := json.Marshal(n.Anchors)
	links, _ := json.Marshal(n.LinksTo)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (id, ordinal, type, title, excerpt, content, themes, anchors, links_to, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			ordinal=excluded.ordinal, type=excluded.type, title=excluded.title,
			excerpt=excluded.excerpt, content=excluded.content, themes=excluded.themes,
			anchors=excluded.anchors, links_to=excluded.links_to, date=excluded.date`,
		n.ID, ordinal, string(n.Type), n.Title, n.Excerpt, n.Content,
		string(themes), string(anchors), string(links), n.Metadata.Date,
	)
	if err != nil {
		return fmt.Errorf("upserting node %s: %w", n.ID, err)
	}
	return nil
}

// nodeHash is the hex sha256 of the node's JSON form.
func nodeHash(n types.Node) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encoding node: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// LoadNodes returns every stored node in corpus order.
func (s *Store) LoadNodes(ctx context.Context) ([]types.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, title, excerpt, content, themes, anchors, links_to, date
		 FROM nodes ORDER BY ordinal, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []types.Node
	for rows.Next() {
		var (
			n                       types.Node
			nodeType                sql.NullString
			title, excerpt, content sql.NullString
			themes, anchors, links  sql.NullString
			date                    sql.NullString
		)
		if err := rows.Scan(&n.ID, &nodeType, &title, &excerpt, &content, &themes, &anchors, &links, &date); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Type = types.NodeType(nodeType.String)
		n.Title = title.String
		n.Excerpt = excerpt.String
		n.Content = content.String
		n.Metadata.Date = date.String
		n.Themes = decodeList(themes)
		n.Anchors = decodeList(anchors)
		n.LinksTo = decodeList(links)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func decodeList(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var out []string
	json.Unmarshal([]byte(v.String), &out)
	if len(out) == 0 {
		return nil
	}
	return out
}
