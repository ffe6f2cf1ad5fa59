// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/integrity-engine/internal/corpus"
)

// ExportYAML writes the stored corpus to dir/index/nodes.yaml in the node
// list format the corpus loader reads. It returns the written path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	f, err := s.exportFile(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, indexDir, "nodes.yaml")
	data, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the stored corpus to dir/index/nodes.json.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	f, err := s.exportFile(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, indexDir, "nodes.json")
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportFile(ctx context.Context) (corpus.File, error) {
	nodes, err := s.LoadNodes(ctx)
	if err != nil {
		return corpus.File{}, fmt.Errorf("loading nodes for export: %w", err)
	}
	return corpus.File{Nodes: nodes}, nil
}
