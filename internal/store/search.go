// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// SearchOptions holds parameters for node searches.
type SearchOptions struct {
	// Query is the FTS5 full-text search string over title and content.
	Query string

	// Type filters by node type.
	Type types.NodeType

	// Anchors filters by one or more anchors with AND semantics.
	Anchors []string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// SearchResult is a matching node with its FTS rank. Lower ranks are
// better; structured-only searches report rank 0.
type SearchResult struct {
	ID      string         `json:"id" yaml:"id"`
	Type    types.NodeType `json:"type" yaml:"type"`
	Title   string         `json:"title" yaml:"title"`
	Excerpt string         `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Anchors []string       `json:"anchors,omitempty" yaml:"anchors,omitempty"`
	Rank    float64        `json:"rank" yaml:"rank"`
}

// Search queries stored nodes with optional full-text search and
// structured filters. Full-text results are ranked by relevance;
// structured-only results follow corpus order.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.searchLimit
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT n.id, n.type, n.title, n.excerpt, n.anchors, nodes_fts.rank
			FROM nodes_fts
			JOIN nodes n ON n.rowid = nodes_fts.rowid
			WHERE nodes_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT n.id, n.type, n.title, n.excerpt, n.anchors, 0 AS rank
			FROM nodes n
			WHERE 1=1`)
	}

	if opts.Type != "" {
		qb.WriteString(` AND n.type = ?`)
		args = append(args, string(opts.Type))
	}

	for _, anchor := range opts.Anchors {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(n.anchors) WHERE value = ?)`)
		args = append(args, anchor)
	}

	if useFTS {
		qb.WriteString(` ORDER BY nodes_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY n.ordinal`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying content store: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r                    SearchResult
			nodeType, title, exc sql.NullString
			anchorsJSON          sql.NullString
		)
		if err := rows.Scan(&r.ID, &nodeType, &title, &exc, &anchorsJSON, &r.Rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Type = types.NodeType(nodeType.String)
		r.Title = title.String
		r.Excerpt = exc.String
		if anchorsJSON.Valid {
			json.Unmarshal([]byte(anchorsJSON.String), &r.Anchors)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}
