package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrapped yaml", "corpus.yaml", `nodes:
  - id: A
    type: tactic
    links_to: [B, ghost-1]
  - id: B
    anchors: [siege]
    metadata:
      date: 1941-09-08
`},
		{"bare yaml list", "list.yml", `- id: A
  type: tactic
  links_to: [B, ghost-1]
- id: B
  anchors: [siege]
  metadata:
    date: 1941-09-08
`},
		{"json object", "corpus.json", `{"nodes": [
  {"id": "A", "type": "tactic", "links_to": ["B", "ghost-1"]},
  {"id": "B", "anchors": ["siege"], "metadata": {"date": "1941-09-08"}}
]}`},
		{"json list", "list.json", `[
  {"id": "A", "type": "tactic", "links_to": ["B", "ghost-1"]},
  {"id": "B", "anchors": ["siege"], "metadata": {"date": "1941-09-08"}}
]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			nodes, err := Load(path)
			require.NoError(t, err)
			require.Len(t, nodes, 2)
			assert.Equal(t, "A", nodes[0].ID)
			assert.Equal(t, types.NodeTactic, nodes[0].Type)
			assert.Equal(t, []string{"B", "ghost-1"}, nodes[0].LinksTo)
			assert.Equal(t, []string{"siege"}, nodes[1].Anchors)
			assert.Equal(t, "1941-09-08", nodes[1].Metadata.Date)
		})
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	writeFile(t, path, "id\nA\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported corpus format")
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b-siege.md"), `---
id: siege-of-leningrad
type: case-study
anchors: [siege, logistics]
themes: [attrition]
links_to: [encirclement]
date: 1941-09-08
---
# Siege of Leningrad

See [[Encirclement]] and [[Road of Life|the ice road]]. Again [[encirclement]].
`)
	writeFile(t, filepath.Join(dir, "a-encirclement.md"), "# Encirclement\n\nCutting supply lines.\n")
	writeFile(t, filepath.Join(dir, ".obsidian", "skip.md"), "# Hidden\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	nodes, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	first := nodes[0]
	assert.Equal(t, "a-encirclement", first.ID)
	assert.Equal(t, "Encirclement", first.Title)
	assert.Empty(t, first.LinksTo)

	second := nodes[1]
	assert.Equal(t, "siege-of-leningrad", second.ID)
	assert.Equal(t, types.NodeCaseStudy, second.Type)
	assert.Equal(t, "Siege of Leningrad", second.Title)
	assert.Equal(t, []string{"encirclement", "road-of-life"}, second.LinksTo)
	assert.Equal(t, "1941-09-08", second.Metadata.Date)
	assert.Equal(t, []string{"siege", "logistics"}, second.Anchors)
	assert.Contains(t, second.Content, "Road of Life")
}

func TestParseNoteBadFrontmatter(t *testing.T) {
	_, err := ParseNote([]byte("---\nanchors: [unclosed\n---\nbody\n"), "bad.md")
	assert.ErrorContains(t, err, "bad.md")
}

func TestParseNoteUnterminatedFrontmatter(t *testing.T) {
	n, err := ParseNote([]byte("---\nid: x\nno closing line\n"), "loose.md")
	require.NoError(t, err)
	assert.Equal(t, "loose", n.ID)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Road of Life":       "road-of-life",
		"  COINTELPRO  ":     "cointelpro",
		"Siege: Leningrad!":  "siege-leningrad",
		"already-slugged-id": "already-slugged-id",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}
