package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalRelType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CREATES", RelIsAuthorOf},
		{"REACTS_TO", RelReactedTo},
		{"ON_POST", RelCommentsOn},
		{RelIsAuthorOf, RelIsAuthorOf},
		{RelReposts, RelReposts},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalRelType(tt.in), "CanonicalRelType(%q)", tt.in)
	}
}

func TestIsPhaseARelType(t *testing.T) {
	for _, relType := range PhaseARelTypes() {
		assert.True(t, IsPhaseARelType(relType), relType)
	}

	// Legacy names resolve to canonical first
	assert.True(t, IsPhaseARelType("CREATES"))
	assert.True(t, IsPhaseARelType("REACTS_TO"))
	assert.True(t, IsPhaseARelType("ON_POST"))

	assert.False(t, IsPhaseARelType(RelReferences))
	assert.False(t, IsPhaseARelType("UNKNOWN"))
}

func TestNodeMergeMissing(t *testing.T) {
	node := NewNode("urn:li:share:1", LabelPost)
	node.Properties["content"] = "first"

	node.MergeMissing(map[string]interface{}{
		"content": "second",
		"type":    "original",
		"empty":   "",
		"null":    nil,
	})

	assert.Equal(t, "first", node.Properties["content"], "first writer keeps the property")
	assert.Equal(t, "original", node.Properties["type"])
	assert.NotContains(t, node.Properties, "empty")
	assert.NotContains(t, node.Properties, "null")
}

func TestRelationshipKey(t *testing.T) {
	rel := Relationship{
		Type: RelReactedTo,
		From: "urn:li:person:a",
		To:   "urn:li:share:1",
		Properties: map[string]interface{}{
			"timestamp": int64(1700000000000),
		},
	}

	same := rel
	assert.Equal(t, rel.Key(), same.Key())

	// The JSON decoder hands back float64 timestamps; the key must not care
	fromJSON := Relationship{
		Type: RelReactedTo,
		From: "urn:li:person:a",
		To:   "urn:li:share:1",
		Properties: map[string]interface{}{
			"timestamp": float64(1700000000000),
		},
	}
	assert.Equal(t, rel.Key(), fromJSON.Key())

	other := rel
	other.Properties = map[string]interface{}{"timestamp": int64(1700000005000)}
	assert.NotEqual(t, rel.Key(), other.Key())
}
