package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/store"
)

func findNode(t *testing.T, nodes []*Node, id string) *Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return nil
}

func relsOfType(rels []Relationship, relType string) []Relationship {
	var out []Relationship
	for _, r := range rels {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

func TestRecordsToGraph_OriginalPost(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityPost,
			AuthorURN:    "urn:li:person:me",
			ActivityURN:  "urn:li:share:111",
			PostURL:      "https://www.linkedin.com/feed/update/urn:li:share:111",
			Content:      "hello, world",
			Time:         1700000000000,
			CreatedAt:    "2023-11-14T22:13:20Z",
		},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	person := findNode(t, nodes, "urn:li:person:me")
	assert.True(t, person.HasLabel(LabelPerson))
	assert.Equal(t, "me", person.Properties["person_id"])

	post := findNode(t, nodes, "urn:li:share:111")
	assert.True(t, post.HasLabel(LabelPost))
	assert.Equal(t, "111", post.Properties["post_id"])
	assert.Equal(t, "original", post.Properties["type"])
	assert.Equal(t, true, post.Properties["has_content"])
	assert.Equal(t, "hello, world", post.Properties["content"])
	assert.Equal(t, int64(1700000000000), post.Properties["timestamp"])

	require.Len(t, rels, 1)
	assert.Equal(t, RelIsAuthorOf, rels[0].Type)
	assert.Equal(t, "urn:li:person:me", rels[0].From)
	assert.Equal(t, "urn:li:share:111", rels[0].To)
	assert.Equal(t, int64(1700000000000), rels[0].Properties["timestamp"])
}

func TestRecordsToGraph_RepostChain(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType:    store.ActivityRepost,
			AuthorURN:       "urn:li:person:reposter",
			ActivityURN:     "urn:li:share:999",
			OriginalPostURN: "urn:li:activity:444",
			Time:            1700000000000,
		},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	share := findNode(t, nodes, "urn:li:share:999")
	assert.Equal(t, "repost", share.Properties["type"])
	assert.Equal(t, "urn:li:activity:444", share.Properties["original_post_urn"])

	original := findNode(t, nodes, "urn:li:activity:444")
	assert.True(t, original.HasLabel(LabelPost))
	assert.Equal(t, "444", original.Properties["post_id"])
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:444",
		original.Properties["url"])

	reposts := relsOfType(rels, RelReposts)
	require.Len(t, reposts, 2)
	assert.Equal(t, "urn:li:person:reposter", reposts[0].From)
	assert.Equal(t, "urn:li:share:999", reposts[0].To)
	assert.Equal(t, "urn:li:share:999", reposts[1].From)
	assert.Equal(t, "urn:li:activity:444", reposts[1].To)
	assert.Equal(t, "repost_of", reposts[1].Properties["relationship_type"])

	assert.Empty(t, relsOfType(rels, RelIsAuthorOf),
		"reposts never produce an authorship edge")
}

func TestRecordsToGraph_ReactionStubFilledByPostRow(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityReactionToPost,
			AuthorURN:    "urn:li:person:abc",
			ActivityURN:  "urn:li:ugcPost:111",
			ReactionType: "LIKE",
			Time:         1700000000000,
		},
		{
			ActivityType: store.ActivityPost,
			AuthorURN:    "urn:li:person:auth",
			ActivityURN:  "urn:li:ugcPost:111",
			Content:      "the post body",
			Time:         1700000001000,
		},
	})
	require.NoError(t, err)

	// One Post node: the reaction's stub, filled by the post's own row
	post := findNode(t, nodes, "urn:li:ugcPost:111")
	assert.Equal(t, "original", post.Properties["type"])
	assert.Equal(t, "the post body", post.Properties["content"])

	postCount := 0
	for _, n := range nodes {
		if n.HasLabel(LabelPost) {
			postCount++
		}
	}
	assert.Equal(t, 1, postCount)

	reactions := relsOfType(rels, RelReactedTo)
	require.Len(t, reactions, 1)
	assert.Equal(t, "LIKE", reactions[0].Properties["reaction_type"])
	assert.Equal(t, "urn:li:person:abc", reactions[0].From)
}

func TestRecordsToGraph_ReactionToComment(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityReactionToComment,
			AuthorURN:    "urn:li:person:abc",
			ActivityURN:  "urn:li:comment:(activity:222,333)",
			ReactionType: "PRAISE",
			Time:         1700000000000,
		},
	})
	require.NoError(t, err)

	comment := findNode(t, nodes, "urn:li:comment:(activity:222,333)")
	assert.True(t, comment.HasLabel(LabelComment), "comment targets stay Comment nodes")
	assert.Equal(t, "333", comment.Properties["comment_id"])
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:222",
		comment.Properties["url"])

	require.Len(t, rels, 1)
	assert.Equal(t, RelReactedTo, rels[0].Type)
	assert.Equal(t, "urn:li:comment:(activity:222,333)", rels[0].To)
}

func TestRecordsToGraph_Comment(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityComment,
			AuthorURN:    "urn:li:person:me",
			ActivityURN:  "urn:li:comment:(ugcPost:555,777)",
			ParentURN:    "urn:li:ugcPost:555",
			Content:      "nice post",
			Time:         1700000000000,
		},
	})
	require.NoError(t, err)

	comment := findNode(t, nodes, "urn:li:comment:(ugcPost:555,777)")
	assert.Equal(t, "777", comment.Properties["comment_id"])
	assert.Equal(t, "nice post", comment.Properties["text"])
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:ugcPost:555",
		comment.Properties["url"])

	// Parent post stub exists for the COMMENTS_ON target
	parent := findNode(t, nodes, "urn:li:ugcPost:555")
	assert.True(t, parent.HasLabel(LabelPost))

	authored := relsOfType(rels, RelIsAuthorOf)
	require.Len(t, authored, 1)
	assert.Equal(t, "urn:li:comment:(ugcPost:555,777)", authored[0].To)

	commentsOn := relsOfType(rels, RelCommentsOn)
	require.Len(t, commentsOn, 1)
	assert.Equal(t, "urn:li:comment:(ugcPost:555,777)", commentsOn[0].From)
	assert.Equal(t, "urn:li:ugcPost:555", commentsOn[0].To)
}

func TestRecordsToGraph_ReplyTargetsParentComment(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityComment,
			AuthorURN:    "urn:li:person:me",
			ActivityURN:  "urn:li:comment:(ugcPost:555,777)",
			ParentURN:    "urn:li:comment:(ugcPost:555,111)",
			Content:      "replying",
		},
	})
	require.NoError(t, err)

	commentsOn := relsOfType(rels, RelCommentsOn)
	require.Len(t, commentsOn, 1)
	assert.Equal(t, "urn:li:comment:(ugcPost:555,111)", commentsOn[0].To,
		"replies point at the parent comment, not the post")

	// The parent comment gets a stub node so the edge has a target
	parent := findNode(t, nodes, "urn:li:comment:(ugcPost:555,111)")
	assert.True(t, parent.HasLabel(LabelComment))
	assert.Equal(t, "111", parent.Properties["comment_id"])
}

func TestRecordsToGraph_InstantRepost(t *testing.T) {
	nodes, rels, err := RecordsToGraph([]store.ActivityRecord{
		{
			ActivityType: store.ActivityInstantRepost,
			AuthorURN:    "urn:li:person:me",
			ActivityURN:  "urn:li:share:888",
			Time:         1700000000000,
		},
	})
	require.NoError(t, err)

	share := findNode(t, nodes, "urn:li:share:888")
	assert.True(t, share.HasLabel(LabelPost))

	require.Len(t, rels, 1)
	assert.Equal(t, RelReposts, rels[0].Type)
	assert.Equal(t, "instant", rels[0].Properties["repost_type"])
}

func TestRecordsToGraph_Empty(t *testing.T) {
	nodes, rels, err := RecordsToGraph(nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, rels)
}
