package cache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/integrity-engine/internal/indexing"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

func sampleResult(t *testing.T) *types.IndexingResult {
	t.Helper()
	res, err := indexing.RunIndexing([]types.Node{
		{ID: "A", LinksTo: []string{"B", "ghost-1"}, Metadata: types.NodeMetadata{Date: "1941-09-08"}},
		{ID: "B", Anchors: []string{"siege"}},
		{ID: "C", Title: "Ghost 1", Anchors: []string{"siege"}},
	})
	require.NoError(t, err)
	return res
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer c.Close()

	cfg := types.DefaultEngineConfig()
	res := sampleResult(t)

	_, ok, err := c.Get(res.Fingerprint, cfg)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(res, cfg))

	got, ok, err := c.Get(res.Fingerprint, cfg)
	require.NoError(t, err)
	require.True(t, ok)

	want, _ := json.Marshal(res)
	have, _ := json.Marshal(got)
	assert.JSONEq(t, string(want), string(have))

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheKeyedByConfig(t *testing.T) {
	c, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer c.Close()

	res := sampleResult(t)
	require.NoError(t, c.Put(res, types.DefaultEngineConfig()))

	other := types.DefaultEngineConfig()
	other.Diagnostics.RepairThreshold = types.Float64(0.9)
	_, ok, err := c.Get(res.Fingerprint, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePersists(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultEngineConfig()
	res := sampleResult(t)

	c, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.Put(res, cfg))
	require.NoError(t, c.Close())

	c, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(res.Fingerprint, cfg)
	require.NoError(t, err)
	assert.True(t, ok)
}
