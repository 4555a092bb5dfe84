package graph

import (
	"fmt"
	"strings"

	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/amai-lab/linkgraph/internal/urn"
)

// RecordsToGraph converts activity CSV rows back into nodes and
// relationships, mirroring what the extractor produces from the live
// changelog. Nodes merge per property with the first writer winning, so
// a bare reaction target becomes a stub the post's own row fills later.
func RecordsToGraph(records []store.ActivityRecord) ([]*Node, []Relationship, error) {
	b := newRecordGraphBuilder()

	for _, rec := range records {
		if strings.HasPrefix(rec.AuthorURN, "urn:li:person:") {
			b.upsertPerson(rec.AuthorURN)
		}

		switch rec.ActivityType {
		case store.ActivityPost:
			b.addPost(rec, "original")

		case store.ActivityRepost:
			b.addPost(rec, "repost")

		case store.ActivityReactionToPost, store.ActivityReactionToComment:
			b.addReaction(rec)

		case store.ActivityComment:
			b.addComment(rec)

		case store.ActivityInstantRepost:
			b.addInstantRepost(rec)
		}
	}

	for _, rel := range b.relationships {
		if !IsPhaseARelType(rel.Type) {
			return nil, nil, fmt.Errorf("unexpected relationship type %q (allowed: %v)",
				rel.Type, PhaseARelTypes())
		}
	}

	return b.nodes(), b.relationships, nil
}

type recordGraphBuilder struct {
	people   map[string]*Node
	posts    map[string]*Node
	comments map[string]*Node

	peopleOrder   []string
	postOrder     []string
	commentOrder  []string
	relationships []Relationship
}

func newRecordGraphBuilder() *recordGraphBuilder {
	return &recordGraphBuilder{
		people:   make(map[string]*Node),
		posts:    make(map[string]*Node),
		comments: make(map[string]*Node),
	}
}

func (b *recordGraphBuilder) upsertPerson(personURN string) {
	if _, ok := b.people[personURN]; ok {
		return
	}
	node := NewNode(personURN, LabelPerson)
	node.Properties["person_id"] = urn.ExtractID(personURN)
	b.people[personURN] = node
	b.peopleOrder = append(b.peopleOrder, personURN)
}

func (b *recordGraphBuilder) upsertPost(postURN string, props map[string]interface{}) {
	node, ok := b.posts[postURN]
	if !ok {
		node = NewNode(postURN, LabelPost)
		node.Properties["post_id"] = urn.ExtractID(postURN)
		node.Properties["url"] = urn.ToPostURL(postURN)
		b.posts[postURN] = node
		b.postOrder = append(b.postOrder, postURN)
	}
	node.MergeMissing(props)
}

func (b *recordGraphBuilder) upsertComment(commentURN string, props map[string]interface{}) {
	node, ok := b.comments[commentURN]
	if !ok {
		node = NewNode(commentURN, LabelComment)
		b.comments[commentURN] = node
		b.commentOrder = append(b.commentOrder, commentURN)
	}
	node.MergeMissing(props)
}

func (b *recordGraphBuilder) addPost(rec store.ActivityRecord, postType string) {
	postURN := rec.ActivityURN
	props := map[string]interface{}{
		"url":         rec.PostURL,
		"type":        postType,
		"has_content": rec.Content != "",
		"created_at":  rec.CreatedAt,
	}
	if rec.Time > 0 {
		props["timestamp"] = rec.Time
	}
	if rec.Content != "" {
		props["content"] = rec.Content
	}

	if postType == "original" {
		b.upsertPost(postURN, props)
		b.relationships = append(b.relationships, Relationship{
			Type:       RelIsAuthorOf,
			From:       rec.AuthorURN,
			To:         postURN,
			Properties: timestampProps(rec.Time, rec.CreatedAt),
		})
		return
	}

	if rec.OriginalPostURN != "" {
		props["original_post_urn"] = rec.OriginalPostURN
	}
	b.upsertPost(postURN, props)
	b.relationships = append(b.relationships, Relationship{
		Type:       RelReposts,
		From:       rec.AuthorURN,
		To:         postURN,
		Properties: timestampProps(rec.Time, rec.CreatedAt),
	})

	// Repost chain: the reposting share points at what it reshared
	if rec.OriginalPostURN != "" {
		b.upsertPost(rec.OriginalPostURN, nil)
		b.relationships = append(b.relationships, Relationship{
			Type: RelReposts,
			From: postURN,
			To:   rec.OriginalPostURN,
			Properties: map[string]interface{}{
				"relationship_type": "repost_of",
			},
		})
	}
}

func (b *recordGraphBuilder) addReaction(rec store.ActivityRecord) {
	targetURN := rec.ActivityURN
	if strings.HasPrefix(targetURN, "urn:li:comment:") {
		stub := map[string]interface{}{
			"url": urn.CommentToPostURL(targetURN),
		}
		if parsed, ok := urn.ParseComment(targetURN); ok && parsed.CommentID != "" {
			stub["comment_id"] = parsed.CommentID
		}
		b.upsertComment(targetURN, stub)
	} else {
		b.upsertPost(targetURN, nil)
	}

	props := timestampProps(rec.Time, rec.CreatedAt)
	props["reaction_type"] = rec.ReactionType
	b.relationships = append(b.relationships, Relationship{
		Type:       RelReactedTo,
		From:       rec.AuthorURN,
		To:         targetURN,
		Properties: props,
	})
}

func (b *recordGraphBuilder) addComment(rec store.ActivityRecord) {
	commentURN := rec.ActivityURN
	parsed, _ := urn.ParseComment(commentURN)

	props := map[string]interface{}{
		"comment_id": parsed.CommentID,
		"text":       rec.Content,
		"created_at": rec.CreatedAt,
		"url":        urn.CommentToPostURL(commentURN),
	}
	if rec.Time > 0 {
		props["timestamp"] = rec.Time
	}
	b.upsertComment(commentURN, props)

	postURN := parsed.ParentURN
	if postURN != "" && !strings.HasPrefix(postURN, "urn:li:comment:") {
		b.upsertPost(postURN, nil)
	}

	b.relationships = append(b.relationships, Relationship{
		Type:       RelIsAuthorOf,
		From:       rec.AuthorURN,
		To:         commentURN,
		Properties: timestampProps(rec.Time, rec.CreatedAt),
	})

	// Replies carry the parent comment in parent_urn; top-level
	// comments fall back to the post from the composite URN.
	targetURN := rec.ParentURN
	if targetURN == "" {
		targetURN = postURN
	}
	if strings.HasPrefix(targetURN, "urn:li:comment:") && targetURN != commentURN {
		stub := map[string]interface{}{
			"url": urn.CommentToPostURL(targetURN),
		}
		if parent, ok := urn.ParseComment(targetURN); ok && parent.CommentID != "" {
			stub["comment_id"] = parent.CommentID
		}
		b.upsertComment(targetURN, stub)
	}
	if targetURN != "" {
		b.relationships = append(b.relationships, Relationship{
			Type:       RelCommentsOn,
			From:       commentURN,
			To:         targetURN,
			Properties: timestampProps(rec.Time, rec.CreatedAt),
		})
	}
}

func (b *recordGraphBuilder) addInstantRepost(rec store.ActivityRecord) {
	targetURN := rec.ActivityURN
	b.upsertPost(targetURN, nil)

	props := timestampProps(rec.Time, rec.CreatedAt)
	props["repost_type"] = "instant"
	b.relationships = append(b.relationships, Relationship{
		Type:       RelReposts,
		From:       rec.AuthorURN,
		To:         targetURN,
		Properties: props,
	})
}

func (b *recordGraphBuilder) nodes() []*Node {
	nodes := make([]*Node, 0, len(b.people)+len(b.posts)+len(b.comments))
	for _, id := range b.peopleOrder {
		nodes = append(nodes, b.people[id])
	}
	for _, id := range b.postOrder {
		nodes = append(nodes, b.posts[id])
	}
	for _, id := range b.commentOrder {
		nodes = append(nodes, b.comments[id])
	}
	return nodes
}

func timestampProps(timeMS int64, createdAt string) map[string]interface{} {
	props := map[string]interface{}{}
	if timeMS > 0 {
		props["timestamp"] = timeMS
	}
	if createdAt != "" {
		props["created_at"] = createdAt
	}
	return props
}
