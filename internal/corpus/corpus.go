// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads node sets from disk: a YAML or JSON node list, or a
// directory of Markdown notes with YAML frontmatter and [[wikilinks]].
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// File holds a node list. A bare list is accepted as well.
type File struct {
	Nodes []types.Node `json:"nodes" yaml:"nodes"`
}

// Load reads nodes from path. Files ending in .yaml, .yml, or .json are
// decoded as node lists; directories are walked for .md notes in name order.
func Load(path string) ([]types.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".md":
		n, err := ParseNote(data, filepath.Base(path))
		if err != nil {
			return nil, err
		}
		return []types.Node{n}, nil
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", filepath.Ext(path))
	}
}

func decodeJSON(data []byte) ([]types.Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var nodes []types.Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("parsing JSON corpus: %w", err)
		}
		return nodes, nil
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing JSON corpus: %w", err)
	}
	return f.Nodes, nil
}

func decodeYAML(data []byte) ([]types.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML corpus: %w", err)
	}
	if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.SequenceNode {
		var nodes []types.Node
		if err := doc.Decode(&nodes); err != nil {
			return nil, fmt.Errorf("parsing YAML corpus: %w", err)
		}
		return nodes, nil
	}
	var f File
	if err := doc.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing YAML corpus: %w", err)
	}
	return f.Nodes, nil
}

// LoadDir parses every .md file under dir, sorted by relative path.
func LoadDir(dir string) ([]types.Node, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus %s: %w", dir, err)
	}
	sort.Strings(paths)

	nodes := make([]types.Node, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		rel, _ := filepath.Rel(dir, p)
		n, err := ParseNote(data, rel)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// frontmatter lists the recognized note header fields.
type frontmatter struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Title   string   `yaml:"title"`
	Excerpt string   `yaml:"excerpt"`
	Themes  []string `yaml:"themes"`
	Anchors []string `yaml:"anchors"`
	LinksTo []string `yaml:"links_to"`
	Date    string   `yaml:"date"`
}

var (
	// wikilinkRe matches [[target]] and [[target|alias]].
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|[^\[\]]+?)?\]\]`)
	h1Re       = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	slugRe     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// ParseNote turns one Markdown note into a node. name is the note's path
// relative to the corpus root; its stem supplies the ID when the
// frontmatter has none.
func ParseNote(data []byte, name string) (types.Node, error) {
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return types.Node{}, fmt.Errorf("frontmatter in %s: %w", name, err)
	}

	n := types.Node{
		ID:       fm.ID,
		Type:     types.NodeType(fm.Type),
		Title:    fm.Title,
		Excerpt:  fm.Excerpt,
		Content:  strings.TrimSpace(body),
		Themes:   fm.Themes,
		Anchors:  fm.Anchors,
		Metadata: types.NodeMetadata{Date: fm.Date},
	}
	if n.ID == "" {
		n.ID = Slug(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	}
	if n.Title == "" {
		if m := h1Re.FindStringSubmatch(body); m != nil {
			n.Title = m[1]
		}
	}
	n.LinksTo = mergeLinks(fm.LinksTo, WikiLinks(body))
	return n, nil
}

// WikiLinks returns the slugged [[wikilink]] targets in body, deduplicated,
// in order of first appearance.
func WikiLinks(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		s := Slug(m[1])
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Slug lowercases s and joins its words with hyphens.
func Slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

func mergeLinks(declared, wiki []string) []string {
	out := append([]string(nil), declared...)
	seen := make(map[string]bool, len(declared))
	for _, l := range declared {
		seen[l] = true
	}
	for _, l := range wiki {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// body. Text without frontmatter is all body.
func splitFrontmatter(text string) (frontmatter, string, error) {
	var fm frontmatter
	text = strings.TrimPrefix(text, "\ufeff")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return fm, text, nil
	}

	rest := text[strings.Index(text, "\n")+1:]
	end := -1
	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		if strings.TrimRight(line, "\r\n") == "---" {
			end = offset
			offset += len(line)
			break
		}
		offset += len(line)
	}
	if end < 0 {
		return fm, text, nil
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, "", err
	}
	return fm, rest[offset:], nil
}
