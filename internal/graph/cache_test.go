package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadMissingIsEmpty(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "changelog_cache.json"))

	data, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, data.Nodes)
	assert.Empty(t, data.Relationships)
	assert.Zero(t, data.LastFetchedMS)
}

func TestCache_SaveLoadRoundtrip(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "changelog_cache.json"))

	data := NewCacheData()
	node := NewNode("urn:li:share:1", LabelPost)
	node.Properties["content"] = "hello"
	data.Merge([]*Node{node}, []Relationship{
		{
			Type: RelIsAuthorOf,
			From: "urn:li:person:me",
			To:   "urn:li:share:1",
			Properties: map[string]interface{}{
				"timestamp": int64(1700000000000),
			},
		},
	}, 1700000000000)

	require.NoError(t, c.Save(data))

	loaded, err := c.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Nodes, "urn:li:share:1")
	assert.Equal(t, "hello", loaded.Nodes["urn:li:share:1"].Properties["content"])
	require.Len(t, loaded.Relationships, 1)
	assert.Equal(t, int64(1700000000000), loaded.LastFetchedMS)
}

func TestCacheMerge_LaterNodeWriteWins(t *testing.T) {
	data := NewCacheData()

	first := NewNode("urn:li:share:1", LabelPost)
	first.Properties["content"] = "old"
	first.Properties["url"] = "https://example.com/1"
	data.Merge([]*Node{first}, nil, 100)

	second := NewNode("urn:li:share:1", LabelPost)
	second.Properties["content"] = "new"
	data.Merge([]*Node{second}, nil, 200)

	node := data.Nodes["urn:li:share:1"]
	assert.Equal(t, "new", node.Properties["content"], "later write wins")
	assert.Equal(t, "https://example.com/1", node.Properties["url"], "untouched keys survive")
	assert.Equal(t, int64(200), data.LastFetchedMS)
}

func TestCacheMerge_RelationshipDedup(t *testing.T) {
	data := NewCacheData()

	rel := Relationship{
		Type: RelReactedTo,
		From: "urn:li:person:me",
		To:   "urn:li:share:1",
		Properties: map[string]interface{}{
			"timestamp":     int64(1700000000000),
			"reaction_type": "LIKE",
		},
	}

	data.Merge(nil, []Relationship{rel}, 100)
	data.Merge(nil, []Relationship{rel}, 200)
	assert.Len(t, data.Relationships, 1)

	// Same pair at a different timestamp is a distinct relationship
	later := rel
	later.Properties = map[string]interface{}{"timestamp": int64(1700000005000)}
	data.Merge(nil, []Relationship{later}, 300)
	assert.Len(t, data.Relationships, 2)
}
