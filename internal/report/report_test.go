package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/integrity-engine/internal/indexing"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

func sampleResult(t *testing.T) *types.IndexingResult {
	t.Helper()
	res, err := indexing.RunIndexing([]types.Node{
		{ID: "A", LinksTo: []string{"B", "ghost-1", "zzz"}},
		{ID: "B", Anchors: []string{"siege"}},
		{ID: "C", Title: "Ghost 1", Anchors: []string{"siege"}},
		{ID: "lonely-node"},
	})
	require.NoError(t, err)
	return res
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleResult(t), &buf)
	out := buf.String()

	assert.Contains(t, out, "(4 nodes)")
	assert.Contains(t, out, "Integrity score:    66.7")
	assert.Contains(t, out, "1 explicit, 1 inferred")
	assert.Contains(t, out, "ghost-1")
	assert.Contains(t, out, "zzz")
	assert.Contains(t, out, "Isolated: lonely-node")
}

func TestFormatJSONAndYAML(t *testing.T) {
	res := sampleResult(t)

	var jbuf bytes.Buffer
	require.NoError(t, FormatJSON(res, &jbuf))
	var decoded types.IndexingResult
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &decoded))
	assert.Equal(t, res.Fingerprint, decoded.Fingerprint)

	var ybuf bytes.Buffer
	require.NoError(t, FormatYAML(res, &ybuf))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &generic))
	assert.Equal(t, res.Fingerprint, generic["fingerprint"])
	assert.Contains(t, generic, "enhanced_diagnostics")
}

func TestFormatMermaid(t *testing.T) {
	var buf bytes.Buffer
	FormatMermaid(sampleResult(t), &buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, []string{
		"graph TD",
		"  A --> B",
		"  B -. 1.00 .- C",
		"  A -. repaired 0.80 .-> C",
		"  A --x zzz",
	}, lines)
}

func TestFormatMermaidLabelsUnsafeIDs(t *testing.T) {
	res := &types.IndexingResult{}
	res.Links.Edges = []types.Edge{{Source: "a-b", Target: "a_b", Kind: types.EdgeExplicit}}
	res.EnhancedDiagnostics.BrokenLinks = []types.BrokenLink{{SourceNodeID: "a_b", OriginalID: ""}}

	var buf bytes.Buffer
	FormatMermaid(res, &buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "  "+MermaidID("a-b")+`["a-b"] --> a_b`, lines[1])
	assert.Equal(t, "  a_b --x "+MermaidID("")+`["(empty)"]`, lines[2])
}

func TestMermaidID(t *testing.T) {
	tests := []struct {
		id     string
		plain  bool
		prefix string
	}{
		{"siege_of_leningrad_1941", true, "siege_of_leningrad_1941"},
		{"A", true, "A"},
		{`siege-of "leningrad" (1941)`, false, "siege_of__leningrad___1941___"},
		{"a-b", false, "a_b__"},
		{"a__b", false, "a__b__"},
		{"", false, "__"},
		{"end", false, "end__"},
		{"café", false, "caf___"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := MermaidID(tt.id)
			if tt.plain {
				assert.Equal(t, tt.id, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.prefix), "MermaidID(%q) = %q", tt.id, got)
			assert.Len(t, got, len(tt.prefix)+8)
		})
	}
}

func TestMermaidIDDistinct(t *testing.T) {
	ids := []string{"a-b", "a_b", "a b", "a.b", "a__b", "", "_", "__"}
	seen := make(map[string]string)
	for _, id := range ids {
		mid := MermaidID(id)
		if prev, ok := seen[mid]; ok {
			t.Errorf("MermaidID(%q) = MermaidID(%q) = %q", id, prev, mid)
		}
		seen[mid] = id
	}
}

func TestMermaidLabelEscaping(t *testing.T) {
	assert.Equal(t, MermaidID(`say "hi" #1`)+`["say #quot;hi#quot; #35;1"]`, mermaidNode(`say "hi" #1`))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"Ленинград блокада", 10, "Ленингр..."},
		{"日本語テキスト", 7, "日本語テキスト"},
		{"日本語テキスト", 5, "日本..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		got := Truncate(tt.s, tt.max)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got), "Truncate(%q, %d) = %q is not valid UTF-8", tt.s, tt.max, got)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, sampleResult(t), "xml")
	assert.ErrorContains(t, err, "unknown format")
}
