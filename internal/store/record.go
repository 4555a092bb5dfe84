package store

// Activity types recorded in the activity CSV
const (
	ActivityPost              = "post"
	ActivityComment           = "comment"
	ActivityRepost            = "repost"
	ActivityInstantRepost     = "instant_repost"
	ActivityReactionToPost    = "reaction_to_post"
	ActivityReactionToComment = "reaction_to_comment"
)

// ActivityRecord is one row of the activity CSV. Column order is fixed;
// downstream notebooks and the graph converter rely on it.
type ActivityRecord struct {
	Owner           string
	ActivityType    string
	Time            int64 // epoch ms
	ReactionType    string
	AuthorURN       string
	ActivityURN     string
	PostURL         string
	Content         string
	ParentURN       string
	OriginalPostURN string
	CreatedAt       string
}

// csvHeader is the fixed 11-column header of the activity CSV
var csvHeader = []string{
	"owner",
	"activity_type",
	"time",
	"reaction_type",
	"author_urn",
	"activity_urn",
	"post_url",
	"content",
	"parent_urn",
	"original_post_urn",
	"created_at",
}
