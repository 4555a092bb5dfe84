package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStatement_IncrementalMergesOnURN(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	node := NewNode("urn:li:share:1", LabelPost)
	node.Properties["content"] = "hello"

	stmt, err := loader.nodeStatement(node)
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, "MERGE (n:Post {urn: $urn})")
	assert.Contains(t, stmt.Query, "ON CREATE SET n = $props")
	assert.Contains(t, stmt.Query, "ON MATCH SET n += $props")
	assert.Equal(t, "urn:li:share:1", stmt.Params["urn"])
	assert.Equal(t, node.Properties, stmt.Params["props"])
}

func TestNodeStatement_MultipleLabels(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	node := NewNode("urn:li:share:1", LabelPost, LabelResource)
	stmt, err := loader.nodeStatement(node)
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, "MERGE (n:Post:Resource {urn: $urn})")
}

func TestNodeStatement_FullRebuildCreates(t *testing.T) {
	loader := NewLoader(nil, LoaderConfig{BatchSize: 500, Incremental: false})

	node := NewNode("urn:li:share:1", LabelPost)
	stmt, err := loader.nodeStatement(node)
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, "CREATE (n:Post)")
	assert.NotContains(t, stmt.Query, "MERGE")
}

func TestNodeStatement_RejectsInvalidLabel(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	node := NewNode("urn:li:share:1", "Post) DETACH DELETE (n")
	_, err := loader.nodeStatement(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid label")

	_, err = loader.nodeStatement(&Node{ID: "urn:li:share:2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no labels")
}

func TestRelationshipStatement_IncrementalMerges(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	stmt, err := loader.relationshipStatement(Relationship{
		Type: RelReactedTo,
		From: "urn:li:person:abc",
		To:   "urn:li:ugcPost:111",
		Properties: map[string]interface{}{
			"reaction_type": "LIKE",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, "MATCH (start {urn: $startNode})")
	assert.Contains(t, stmt.Query, "MATCH (end {urn: $endNode})")
	assert.Contains(t, stmt.Query, "MERGE (start)-[r:REACTED_TO]->(end)")
	assert.Contains(t, stmt.Query, "ON CREATE SET r = $props")
	assert.Equal(t, "urn:li:person:abc", stmt.Params["startNode"])
	assert.Equal(t, "urn:li:ugcPost:111", stmt.Params["endNode"])
}

func TestRelationshipStatement_NilPropsBecomeEmptyMap(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	stmt, err := loader.relationshipStatement(Relationship{
		Type: RelReposts,
		From: "a",
		To:   "b",
	})
	require.NoError(t, err)
	props, ok := stmt.Params["props"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, props)
}

func TestRelationshipStatement_RejectsInvalidType(t *testing.T) {
	loader := NewLoader(nil, DefaultLoaderConfig())

	_, err := loader.relationshipStatement(Relationship{
		Type: "REACTED_TO]->() MATCH (m) DETACH DELETE m //",
		From: "a",
		To:   "b",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid relationship type")
}

func TestFilterNewNodes(t *testing.T) {
	existing := map[string]bool{"urn:li:share:1": true}

	nodes := []*Node{
		NewNode("urn:li:share:1", LabelPost),
		NewNode("urn:li:share:2", LabelPost),
	}

	filtered := filterNewNodes(nodes, existing)
	require.Len(t, filtered, 1)
	assert.Equal(t, "urn:li:share:2", filtered[0].ID)
}

func TestFilterNewRelationships(t *testing.T) {
	existing := map[Triple]bool{
		{Start: "a", Type: RelReactedTo, End: "b"}: true,
	}

	rels := []Relationship{
		{Type: RelReactedTo, From: "a", To: "b"},
		{Type: RelReactedTo, From: "a", To: "c"},
		{Type: RelReposts, From: "a", To: "b"},
	}

	filtered := filterNewRelationships(rels, existing)
	require.Len(t, filtered, 2)
	assert.Equal(t, "c", filtered[0].To)
	assert.Equal(t, RelReposts, filtered[1].Type)
}

func TestLoaderConfig_DefaultsBatchSize(t *testing.T) {
	loader := NewLoader(nil, LoaderConfig{Incremental: true})
	assert.Equal(t, DefaultBatchSize, loader.config.BatchSize)
}
