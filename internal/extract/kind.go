// Package extract turns raw changelog elements into graph entities.
//
// Each element is classified into an ElementKind, then dispatched to a
// kind-specific extraction routine that upserts Person/Post/Comment nodes
// and appends relationships. Elements that cannot be classified or that
// lack required fields are skipped with a counted reason, never dropped
// silently.
package extract

import (
	"strings"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

// ElementKind is the activity category of a changelog element.
type ElementKind int

const (
	KindUnknown ElementKind = iota
	KindReaction
	KindPost
	KindComment
	KindRepost
	KindInstantRepost
)

// String returns the snake_case name used in records, previews, and logs.
func (k ElementKind) String() string {
	switch k {
	case KindReaction:
		return "reaction"
	case KindPost:
		return "post"
	case KindComment:
		return "comment"
	case KindRepost:
		return "repost"
	case KindInstantRepost:
		return "instant_repost"
	default:
		return "unknown"
	}
}

// Resource name fragments that drive classification. Matching is substring
// because LinkedIn prefixes these with varying parent paths.
const (
	resourceReactions      = "socialActions/likes"
	resourceComments       = "socialActions/comments"
	resourcePosts          = "ugcpost" // lowercased; covers ugcPost and ugcPosts
	resourceInstantReposts = "instantReposts"
)

// Classify maps a changelog element to its kind from the resource name.
//
// Classify never returns KindRepost: reposts arrive under the post resource
// and are only distinguishable from the activity payload, so the post
// extractor refines them.
//
// LinkedIn sometimes delivers comment activities under the ugcPosts
// resource. Those are recognized by shape: a comment activity carries
// `object` and `message.text` but no ShareContent.
func Classify(el *changelog.Element) ElementKind {
	rn := el.ResourceName
	switch {
	case strings.Contains(rn, resourceReactions):
		return KindReaction
	case strings.Contains(rn, resourceComments):
		return KindComment
	case strings.Contains(rn, resourceInstantReposts):
		return KindInstantRepost
	case strings.Contains(strings.ToLower(rn), resourcePosts):
		if looksLikeComment(el.Activity) {
			return KindComment
		}
		return KindPost
	}
	return KindUnknown
}

// looksLikeComment reports whether a post-resource activity is actually a
// comment payload.
func looksLikeComment(activity map[string]interface{}) bool {
	if activity == nil {
		return false
	}
	if getString(activity, "object") == "" {
		return false
	}
	if digString(activity, "message", "text") == "" {
		return false
	}
	specific := getMap(activity, "specificContent")
	_, hasShareContent := specific["com.linkedin.ugc.ShareContent"]
	return !hasShareContent
}
