package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/graph"
)

const testActor = "urn:li:person:me"

func cacheWith(nodes []*graph.Node, rels []graph.Relationship) *graph.CacheData {
	data := graph.NewCacheData()
	for _, n := range nodes {
		data.Nodes[n.ID] = n
	}
	data.Relationships = rels
	return data
}

func postNode(id, content string) *graph.Node {
	n := graph.NewNode(id, graph.LabelPost)
	n.Properties["content"] = content
	n.Properties["url"] = "https://www.linkedin.com/feed/update/" + id
	return n
}

func TestCollectActivitiesReaction(t *testing.T) {
	ts := int64(1722470400000)
	post := postNode("urn:li:share:1", "Check https://github.com/a/b for code")
	data := cacheWith(
		[]*graph.Node{graph.NewNode(testActor, graph.LabelPerson), post},
		[]graph.Relationship{{
			Type: graph.RelReactedTo,
			From: testActor,
			To:   "urn:li:share:1",
			Properties: map[string]interface{}{
				"timestamp":     ts,
				"reaction_type": "LIKE",
			},
		}},
	)

	records := CollectActivities(data, CollectOptions{})

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "urn:li:share:1", r.PostURN)
	assert.Equal(t, InteractionReaction, r.InteractionType)
	assert.Equal(t, "LIKE", r.ReactionType)
	assert.Equal(t, "Check https://github.com/a/b for code", r.Content)
	assert.Equal(t, []string{"https://github.com/a/b"}, r.URLs)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:share:1", r.PostURL)
	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, time.UnixMilli(ts).UTC().Format(time.RFC3339), r.CreatedAt)
}

func TestCollectActivitiesLegacyRelationshipNames(t *testing.T) {
	post := postNode("urn:li:share:1", "post body")
	comment := graph.NewNode("urn:li:comment:(share:1,9)", graph.LabelComment)
	comment.Properties["text"] = "my comment"
	data := cacheWith(
		[]*graph.Node{graph.NewNode(testActor, graph.LabelPerson), post, comment},
		[]graph.Relationship{
			{Type: "REACTS_TO", From: testActor, To: "urn:li:share:1"},
			{Type: "CREATES", From: testActor, To: comment.ID},
			{Type: "ON_POST", From: comment.ID, To: "urn:li:share:1"},
		},
	)

	records := CollectActivities(data, CollectOptions{})

	require.Len(t, records, 2)
	assert.Equal(t, InteractionReaction, records[0].InteractionType)
	assert.Equal(t, InteractionComment, records[1].InteractionType)
	assert.Equal(t, "my comment", records[1].CommentText)
	assert.Equal(t, comment.ID, records[1].CommentURN)
	assert.Equal(t, "post body", records[1].Content)
}

func TestCollectActivitiesRepostUsesOriginal(t *testing.T) {
	share := graph.NewNode("urn:li:share:2", graph.LabelPost)
	share.Properties["original_post_urn"] = "urn:li:ugcPost:7"
	share.Properties["timestamp"] = int64(1700000000000)
	original := postNode("urn:li:ugcPost:7", "the original announcement with https://example.com/release")
	data := cacheWith(
		[]*graph.Node{graph.NewNode(testActor, graph.LabelPerson), share, original},
		[]graph.Relationship{
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:ugcPost:7"},
			{Type: graph.RelReposts, From: testActor, To: "urn:li:share:2"},
		},
	)

	records := CollectActivities(data, CollectOptions{Types: []string{InteractionRepost}})

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "urn:li:ugcPost:7", r.PostURN)
	assert.Equal(t, "the original announcement with https://example.com/release", r.Content)
	assert.Equal(t, []string{"https://example.com/release"}, r.URLs)
	assert.Equal(t, int64(1700000000000), r.Timestamp)
}

func TestCollectActivitiesDedupByPostAndType(t *testing.T) {
	post := postNode("urn:li:share:1", "body")
	data := cacheWith(
		[]*graph.Node{post},
		[]graph.Relationship{
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1",
				Properties: map[string]interface{}{"reaction_type": "LIKE"}},
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1",
				Properties: map[string]interface{}{"reaction_type": "PRAISE"}},
		},
	)

	records := CollectActivities(data, CollectOptions{})

	require.Len(t, records, 1)
	assert.Equal(t, "LIKE", records[0].ReactionType)
}

func TestCollectActivitiesWindowFiltering(t *testing.T) {
	old := int64(1000)
	recent := int64(5000)
	post := postNode("urn:li:share:1", "body")
	other := postNode("urn:li:share:2", "body two")
	data := cacheWith(
		[]*graph.Node{post, other},
		[]graph.Relationship{
			// out of range first: it must not reserve the dedup key
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1",
				Properties: map[string]interface{}{"timestamp": old}},
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1",
				Properties: map[string]interface{}{"timestamp": recent}},
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:2",
				Properties: map[string]interface{}{"timestamp": old}},
		},
	)

	records := CollectActivities(data, CollectOptions{StartMS: 2000, EndMS: 9000})

	require.Len(t, records, 1)
	assert.Equal(t, "urn:li:share:1", records[0].PostURN)
	assert.Equal(t, recent, records[0].Timestamp)
}

func TestCollectActivitiesUnknownTimestampKept(t *testing.T) {
	post := postNode("urn:li:share:1", "body")
	data := cacheWith(
		[]*graph.Node{post},
		[]graph.Relationship{{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1"}},
	)

	records := CollectActivities(data, CollectOptions{StartMS: 2000, EndMS: 9000})

	require.Len(t, records, 1)
	assert.Empty(t, records[0].CreatedAt)
}

func TestCollectActivitiesTypeFilter(t *testing.T) {
	post := postNode("urn:li:share:1", "body")
	share := graph.NewNode("urn:li:share:2", graph.LabelPost)
	share.Properties["content"] = "repost body long enough"
	data := cacheWith(
		[]*graph.Node{post, share},
		[]graph.Relationship{
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1"},
			{Type: graph.RelReposts, From: testActor, To: "urn:li:share:2"},
		},
	)

	records := CollectActivities(data, CollectOptions{Types: []string{InteractionReaction}})

	require.Len(t, records, 1)
	assert.Equal(t, InteractionReaction, records[0].InteractionType)
}

func TestInferUserActor(t *testing.T) {
	t.Run("skips non-person sources", func(t *testing.T) {
		data := cacheWith(nil, []graph.Relationship{
			{Type: graph.RelReactedTo, From: "urn:li:organization:5", To: "urn:li:share:1"},
			{Type: graph.RelReactedTo, From: testActor, To: "urn:li:share:1"},
		})
		assert.Equal(t, testActor, InferUserActor(data))
	})

	t.Run("empty without reaction edges", func(t *testing.T) {
		data := cacheWith(nil, []graph.Relationship{
			{Type: graph.RelIsAuthorOf, From: testActor, To: "urn:li:share:1"},
		})
		assert.Empty(t, InferUserActor(data))
	})
}

func TestCollectActivitiesNoActor(t *testing.T) {
	post := postNode("urn:li:share:1", "body")
	data := cacheWith([]*graph.Node{post}, []graph.Relationship{
		{Type: graph.RelIsAuthorOf, From: testActor, To: "urn:li:share:1"},
	})

	assert.Empty(t, CollectActivities(data, CollectOptions{}))
}

func TestParseWindow(t *testing.T) {
	now := time.Now().UTC().UnixMilli()

	sevenDays, err := ParseWindow("7d")
	require.NoError(t, err)
	assert.InDelta(t, now-7*24*3600*1000, sevenDays, 5000)

	twoWeeks, err := ParseWindow("2w")
	require.NoError(t, err)
	assert.InDelta(t, now-14*24*3600*1000, twoWeeks, 5000)

	oneMonth, err := ParseWindow("1m")
	require.NoError(t, err)
	assert.InDelta(t, now-30*24*3600*1000, oneMonth, 5000)

	for _, bad := range []string{"", "7", "d", "7y", "xd"} {
		_, err := ParseWindow(bad)
		assert.Error(t, err, "value %q", bad)
	}
}
