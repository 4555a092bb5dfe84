// Package urn converts LinkedIn URN identifiers to canonical IDs and URLs.
//
// LinkedIn's API speaks URNs (urn:li:person:abc, urn:li:ugcPost:123) while
// the web UI speaks URLs. Comments are the awkward case: the changelog only
// carries a bare numeric comment id, so a composite URN of the form
// urn:li:comment:(<parent_type>:<parent_id>,<comment_id>) is reconstructed
// from context and used as the canonical comment identifier everywhere.
package urn

import (
	"fmt"
	"strings"
)

const (
	commentPrefix = "urn:li:comment:"
	linkedinURN   = "urn:li:"
)

// postParentTypes are the URN namespaces that identify a post. LinkedIn has
// used all of them interchangeably over the years.
var postParentTypes = []string{"activity", "ugcPost", "share", "groupPost"}

// ExtractID returns the ID portion of a LinkedIn URN.
//
// A string without colons is returned unchanged (it is already a bare ID).
// A URN with fewer than four colon-separated parts is malformed and yields "".
//
//	urn:li:person:k_ho7OlN0r -> k_ho7OlN0r
//	urn:li:ugcPost:7398404729531285504 -> 7398404729531285504
func ExtractID(urn string) string {
	if urn == "" {
		return ""
	}
	if !strings.Contains(urn, ":") {
		return urn
	}
	parts := strings.Split(urn, ":")
	if len(parts) < 4 {
		return ""
	}
	return parts[len(parts)-1]
}

// ToPostURL converts any urn:li: URN to its public feed URL. The full URN is
// part of the path, not just the ID.
func ToPostURL(urn string) string {
	if !strings.HasPrefix(urn, linkedinURN) {
		return ""
	}
	return "https://www.linkedin.com/feed/update/" + urn
}

// CommentParts is the decomposition of a composite comment URN. For the
// legacy simple format (urn:li:comment:123) only CommentID is set.
type CommentParts struct {
	ParentType string
	ParentID   string
	CommentID  string
	ParentURN  string
}

// ParseComment decomposes a comment URN. It accepts both the composite
// format urn:li:comment:(activity:111,222) and the legacy simple format
// urn:li:comment:222. Returns ok=false for anything else.
func ParseComment(commentURN string) (CommentParts, bool) {
	if !strings.HasPrefix(commentURN, commentPrefix) {
		return CommentParts{}, false
	}

	rest := commentURN[len(commentPrefix):]
	if !strings.HasPrefix(rest, "(") {
		// Old format: bare comment id, no parent information.
		return CommentParts{CommentID: rest}, true
	}
	if !strings.HasSuffix(rest, ")") {
		return CommentParts{}, false
	}

	inner := rest[1 : len(rest)-1]
	pieces := strings.Split(inner, ",")
	if len(pieces) != 2 {
		return CommentParts{}, false
	}

	parentPart := strings.TrimSpace(pieces[0])
	commentID := strings.TrimSpace(pieces[1])

	parentType, parentID, found := strings.Cut(parentPart, ":")
	if !found {
		return CommentParts{}, false
	}

	return CommentParts{
		ParentType: parentType,
		ParentID:   parentID,
		CommentID:  commentID,
		ParentURN:  fmt.Sprintf("urn:li:%s:%s", parentType, parentID),
	}, true
}

// BuildComment constructs the composite comment URN from a parent post URN
// and a comment id. Returns "" if the parent URN is unparseable.
func BuildComment(parentURN, commentID string) string {
	if parentURN == "" || commentID == "" {
		return ""
	}
	if !strings.HasPrefix(parentURN, linkedinURN) {
		return ""
	}

	parts := strings.SplitN(parentURN, ":", 4)
	if len(parts) < 4 {
		return ""
	}

	return fmt.Sprintf("urn:li:comment:(%s:%s,%s)", parts[2], parts[3], commentID)
}

// ParentPostURN extracts the parent post URN from a composite comment URN.
// Only post-like parent namespaces count; a comment whose parent is some
// other entity type yields "".
func ParentPostURN(commentURN string) string {
	parsed, ok := ParseComment(commentURN)
	if !ok || parsed.ParentURN == "" {
		return ""
	}
	for _, pt := range postParentTypes {
		if strings.HasPrefix(parsed.ParentURN, "urn:li:"+pt+":") {
			return parsed.ParentURN
		}
	}
	return ""
}

// CommentToPostURL resolves the URL of a comment's parent post. Comments have
// no direct URL of their own.
func CommentToPostURL(commentURN string) string {
	parentURN := ParentPostURN(commentURN)
	if parentURN == "" {
		return ""
	}
	return ToPostURL(parentURN)
}

// ToProfileURL converts a person URN to the legacy profile URL. LinkedIn now
// uses vanity URLs which require an API lookup, so this form may redirect.
func ToProfileURL(urn string) string {
	if !strings.HasPrefix(urn, "urn:li:person:") {
		return ""
	}
	id := ExtractID(urn)
	if id == "" {
		return ""
	}
	return "https://www.linkedin.com/profile/view?id=" + id
}

// ToURL converts any LinkedIn URN to its HTML URL, detecting the entity type
// from the URN prefix. Unknown urn:li: namespaces fall back to the post
// format, which is what the feed accepts for most content URNs.
func ToURL(urn string) string {
	switch {
	case urn == "":
		return ""
	case strings.HasPrefix(urn, "urn:li:person:"):
		return ToProfileURL(urn)
	case strings.HasPrefix(urn, "urn:li:organization:"):
		id := ExtractID(urn)
		if id == "" {
			return ""
		}
		return "https://www.linkedin.com/company/" + id
	case strings.HasPrefix(urn, commentPrefix):
		return CommentToPostURL(urn)
	case strings.HasPrefix(urn, linkedinURN):
		return ToPostURL(urn)
	default:
		return ""
	}
}
