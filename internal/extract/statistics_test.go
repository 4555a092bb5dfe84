package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

func TestCollectStatistics(t *testing.T) {
	me := "urn:li:person:me"
	other := "urn:li:person:other"

	elements := []changelog.Element{
		// first actor seen becomes the member
		*element("messages", me, map[string]interface{}{}),
		*element("messages", other, map[string]interface{}{}),
		*element("invitations", me, map[string]interface{}{}),
		*element("socialActions/likes", me, map[string]interface{}{"reactionType": "LIKE"}),
		*element("socialActions/likes", me, map[string]interface{}{"reactionType": "LIKE"}),
		*element("socialActions/likes", me, map[string]interface{}{"reactionType": "PRAISE"}),
		*element("socialActions/likes", me, map[string]interface{}{}),
		*element("ugcPosts", me, map[string]interface{}{}),
		*element("ugcPosts", me, map[string]interface{}{"resharedPost": "urn:li:share:1"}),
		*element("ugcPosts", me, map[string]interface{}{
			"resharedActivity": "urn:li:activity:2",
			"commentary":       "my take",
		}),
		*element("socialActions/comments", me, map[string]interface{}{}),
	}

	stats := CollectStatistics(elements)

	assert.Equal(t, 2, stats.Messages.Total)
	assert.Equal(t, 1, stats.Messages.Sent)
	assert.Equal(t, 1, stats.Messages.Received)

	assert.Equal(t, 1, stats.Invites.Total)
	assert.Equal(t, 1, stats.Invites.Sent)

	assert.Equal(t, 2, stats.Reactions["LIKE"])
	assert.Equal(t, 1, stats.Reactions["PRAISE"])
	assert.Equal(t, 1, stats.Reactions["UNKNOWN"])

	assert.Equal(t, 3, stats.Posts.Total)
	assert.Equal(t, 1, stats.Posts.Original)
	assert.Equal(t, 1, stats.Posts.Repost)
	assert.Equal(t, 1, stats.Posts.RepostWithComment)

	assert.Equal(t, 1, stats.CommentsTotal)

	assert.Equal(t, 4, stats.ResourceTypes["socialActions/likes"])
	assert.Equal(t, 11, stats.MethodTypes["CREATE"])
}

func TestCollectStatistics_FirstExamplePerResource(t *testing.T) {
	first := map[string]interface{}{"reactionType": "LIKE"}
	second := map[string]interface{}{"reactionType": "PRAISE"}

	stats := CollectStatistics([]changelog.Element{
		*element("socialActions/likes", testActor, first),
		*element("socialActions/likes", testActor, second),
	})

	assert.Equal(t, "LIKE", getString(stats.Examples["socialActions/likes"], "reactionType"))
}

func TestCollectStatistics_Empty(t *testing.T) {
	stats := CollectStatistics(nil)
	assert.Equal(t, 0, stats.Messages.Total)
	assert.Empty(t, stats.Reactions)
}
