package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReposterMap(t *testing.T) {
	reposter := NewNode("urn:li:person:reposter", LabelPerson)
	original := NewNode("urn:li:person:original", LabelPerson)

	share := NewNode("urn:li:share:999", LabelPost)
	share.Properties["original_post_urn"] = "urn:li:activity:444"

	plainPost := NewNode("urn:li:share:1", LabelPost)

	nodes := []*Node{reposter, original, share, plainPost}
	rels := []Relationship{
		{Type: RelReposts, From: "urn:li:person:reposter", To: "urn:li:share:999"},
		// Chain edge: share to original, not a person, ignored
		{Type: RelReposts, From: "urn:li:share:999", To: "urn:li:activity:444"},
		// Authorship of a plain post, ignored
		{Type: RelIsAuthorOf, From: "urn:li:person:original", To: "urn:li:share:1"},
		// REPOSTS to a post without original_post_urn, ignored
		{Type: RelReposts, From: "urn:li:person:original", To: "urn:li:share:1"},
	}

	m := BuildReposterMap(nodes, rels)
	assert.Equal(t, map[string]string{
		"urn:li:share:999": "urn:li:person:reposter",
	}, m)
}

func TestBuildReposterMap_Empty(t *testing.T) {
	assert.Empty(t, BuildReposterMap(nil, nil))
}

func TestHasLabelFromQueryResult(t *testing.T) {
	labels := []interface{}{"Post", "Comment"}
	assert.True(t, hasLabel(labels, "Comment"))
	assert.False(t, hasLabel(labels, "Person"))
	assert.False(t, hasLabel(nil, "Post"))
	assert.False(t, hasLabel("Comment", "Comment"))
}
