package extract

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/amai-lab/linkgraph/internal/urn"
)

// contentSnippet is how much text a node keeps. The content store holds the
// full body.
const contentSnippet = 200

// Extractor accumulates graph entities across changelog elements.
//
// Nodes are keyed by URN. Across elements of one run the first non-empty
// value of a property wins; later elements only fill gaps. Relationships
// accumulate, except that a reaction DELETE removes the matching pair.
type Extractor struct {
	persons  map[string]*graph.Node
	posts    map[string]*graph.Node
	comments map[string]*graph.Node

	relationships []graph.Relationship
	records       []store.ActivityRecord

	// contents holds full untruncated bodies by URN for the content store.
	contents map[string]string

	skips  map[string]int
	counts map[ElementKind]int

	tracefn func(step string)
}

// NewExtractor returns an empty accumulator.
func NewExtractor() *Extractor {
	return &Extractor{
		persons:  make(map[string]*graph.Node),
		posts:    make(map[string]*graph.Node),
		comments: make(map[string]*graph.Node),
		contents: make(map[string]string),
		skips:    make(map[string]int),
		counts:   make(map[ElementKind]int),
	}
}

// WithTrace registers a hook that receives one line per extraction decision.
// Used by the preview path; nil (the default) costs nothing.
func (e *Extractor) WithTrace(fn func(step string)) *Extractor {
	e.tracefn = fn
	return e
}

func (e *Extractor) trace(format string, args ...interface{}) {
	if e.tracefn != nil {
		e.tracefn(fmt.Sprintf(format, args...))
	}
}

// Summary counts element outcomes for one ProcessAll run.
type Summary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// ProcessAll feeds every element through Process.
func (e *Extractor) ProcessAll(elements []changelog.Element) Summary {
	var s Summary
	for i := range elements {
		switch e.Process(&elements[i]).Status {
		case StatusOK:
			s.Extracted++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Process classifies one element and runs the kind-specific extraction.
func (e *Extractor) Process(el *changelog.Element) Result {
	kind := Classify(el)
	e.trace("resourceName %q classified as %s", el.ResourceName, kind)

	var res Result
	switch kind {
	case KindReaction:
		res = e.extractReaction(el)
	case KindComment:
		res = e.extractComment(el)
	case KindInstantRepost:
		res = e.extractInstantRepost(el)
	case KindPost:
		res = e.extractPost(el)
	default:
		res = e.skip(KindUnknown, "unclassified_"+el.ResourceName)
	}

	e.counts[res.Kind]++
	return res
}

// skip counts a reason and returns the skipped result.
func (e *Extractor) skip(kind ElementKind, reason string) Result {
	e.skips[reason]++
	e.trace("skipped: %s", reason)
	return Skipped(kind, reason)
}

// --- reactions -------------------------------------------------------------

func (e *Extractor) extractReaction(el *changelog.Element) Result {
	activity := el.Activity
	rn := el.ResourceName

	target := e.reactionTarget(el, activity)
	if target == "" {
		return e.skip(KindReaction, "reaction_no_post_urn_"+rn)
	}
	actor := actorOf(el, activity)
	if actor == "" {
		return e.skip(KindReaction, "reaction_no_actor_"+rn)
	}

	if isDelete(el) {
		removed := e.removeReaction(actor, target)
		e.trace("DELETE removed %d reaction edge(s) %s → %s", removed, actor, target)
		return Ok(KindReaction)
	}

	reactionType := getString(activity, "reactionType")
	if reactionType == "" {
		reactionType = "UNKNOWN"
	}
	ts := digNumber(activity, "created", "time")

	e.upsertReactionTarget(target)
	e.upsertPerson(actor)

	props := relProps(ts)
	props["reaction_type"] = reactionType
	e.addRelationship(graph.RelReactedTo, actor, target, props)
	e.trace("REACTED_TO %s → %s (%s)", actor, target, reactionType)

	rec := store.ActivityRecord{
		Owner:        el.Owner,
		ActivityType: store.ActivityReactionToPost,
		Time:         recordTime(ts, el),
		ReactionType: reactionType,
		AuthorURN:    actor,
		ActivityURN:  target,
		PostURL:      urn.ToURL(target),
		CreatedAt:    formatTime(ts),
	}
	if strings.HasPrefix(target, "urn:li:comment:") {
		rec.ActivityType = store.ActivityReactionToComment
		rec.ParentURN = urn.ParentPostURN(target)
	}
	e.records = append(e.records, rec)

	return Ok(KindReaction)
}

// reactionTarget resolves what a reaction points at. The changelog is
// inconsistent about where the target lives, so several locations are tried
// in order.
func (e *Extractor) reactionTarget(el *changelog.Element, activity map[string]interface{}) string {
	if t := getString(activity, "root"); t != "" {
		e.trace("target from activity.root: %s", t)
		return t
	}
	if t := getString(activity, "object"); t != "" {
		e.trace("target from activity.object: %s", t)
		return t
	}

	if strings.HasPrefix(el.ResourceID, "urn:li:") {
		e.trace("target from resourceId: %s", el.ResourceID)
		return el.ResourceID
	}

	// resourceUri looks like /socialActions/urn:li:activity:123/likes/...
	// with the URN segment sometimes percent-encoded.
	for _, part := range strings.Split(el.ResourceURI, "/") {
		if unescaped, err := url.PathUnescape(part); err == nil {
			part = unescaped
		}
		if strings.HasPrefix(part, "urn:li:") {
			e.trace("target from resourceUri segment: %s", part)
			return part
		}
	}

	// Composite reaction URN: urn:li:reaction:(<actor>,<target>)
	reactionURN := getString(activity, "$URN")
	if reactionURN == "" {
		reactionURN = getString(activity, "urn")
	}
	const prefix = "urn:li:reaction:("
	if strings.HasPrefix(reactionURN, prefix) {
		inner := strings.TrimSuffix(reactionURN[len(prefix):], ")")
		parts := strings.Split(inner, ",")
		if len(parts) == 2 {
			t := strings.TrimSpace(parts[1])
			if strings.HasPrefix(t, "urn:li:") {
				e.trace("target from reaction URN composite: %s", t)
				return t
			}
		}
	}

	return ""
}

// removeReaction drops accumulated REACTED_TO edges and pending reaction
// records for an (actor, target) pair. Returns how many edges went away.
func (e *Extractor) removeReaction(actor, target string) int {
	kept := e.relationships[:0]
	removed := 0
	for _, rel := range e.relationships {
		if rel.Type == graph.RelReactedTo && rel.From == actor && rel.To == target {
			removed++
			continue
		}
		kept = append(kept, rel)
	}
	e.relationships = kept

	keptRecords := e.records[:0]
	for _, rec := range e.records {
		if (rec.ActivityType == store.ActivityReactionToPost || rec.ActivityType == store.ActivityReactionToComment) &&
			rec.AuthorURN == actor && rec.ActivityURN == target {
			continue
		}
		keptRecords = append(keptRecords, rec)
	}
	e.records = keptRecords

	return removed
}

// --- posts and reposts -----------------------------------------------------

func (e *Extractor) extractPost(el *changelog.Element) Result {
	activity := el.Activity
	rn := el.ResourceName

	postURN := getString(activity, "id")
	if postURN == "" {
		return e.skip(KindPost, "post_no_id_"+rn)
	}
	if !strings.HasPrefix(postURN, "urn:li:share:") && !strings.HasPrefix(postURN, "urn:li:ugcPost:") {
		return e.skip(KindPost, "post_unsupported_urn_"+rn)
	}

	ts := digNumber(activity, "created", "time")
	actor := actorOf(el, activity)

	responseContext := getMap(activity, "responseContext")
	isRepost := getString(activity, "ugcOrigin") == "RESHARE" || getString(responseContext, "parent") != ""
	kind := KindPost
	if isRepost {
		kind = KindRepost
	}

	// The share author. For reposts the changelog's author field can name
	// the ORIGINAL author, so the element actor is authoritative there.
	author := actor
	if !isRepost {
		if a := getString(activity, "author"); a != "" {
			author = a
		} else if a := digString(activity, "firstPublishedActor", "member"); a != "" {
			author = a
		}
	}
	if author == "" {
		return e.skip(kind, kind.String()+"_no_author_"+rn)
	}

	content := digString(getMap(activity, "specificContent"), "com.linkedin.ugc.ShareContent", "shareCommentary", "text")

	var originalPostURN string
	if isRepost {
		originalPostURN = getString(responseContext, "parent")
		if originalPostURN == "" {
			originalPostURN = getString(responseContext, "root")
		}
	}

	postType := "original"
	if isRepost {
		postType = "repost"
	}

	postProps := relProps(ts)
	postProps["type"] = postType
	postProps["has_content"] = content != ""
	if content != "" {
		postProps["content"] = truncate(content, contentSnippet)
		if urls := enrich.ExtractURLs(content); len(urls) > 0 {
			postProps["extracted_urls"] = urls
		}
		e.contents[postURN] = content
	}
	if originalPostURN != "" {
		postProps["original_post_urn"] = originalPostURN
	}

	e.upsertPost(postURN, postProps)
	e.upsertPerson(author)

	if originalPostURN != "" {
		e.upsertPost(originalPostURN, nil)
		chainProps := relProps(ts)
		chainProps["relationship_type"] = "repost_of"
		e.addRelationship(graph.RelReposts, postURN, originalPostURN, chainProps)
		e.trace("REPOSTS %s → %s (repost_of)", postURN, originalPostURN)
	}

	relType := graph.RelIsAuthorOf
	if isRepost {
		relType = graph.RelReposts
	}
	e.addRelationship(relType, author, postURN, relProps(ts))
	e.trace("%s %s → %s", relType, author, postURN)

	rec := store.ActivityRecord{
		Owner:           el.Owner,
		ActivityType:    store.ActivityPost,
		Time:            recordTime(ts, el),
		AuthorURN:       author,
		ActivityURN:     postURN,
		PostURL:         urn.ToPostURL(postURN),
		Content:         truncate(content, contentSnippet),
		OriginalPostURN: originalPostURN,
		CreatedAt:       formatTime(ts),
	}
	if isRepost {
		rec.ActivityType = store.ActivityRepost
	}
	e.records = append(e.records, rec)

	return Ok(kind)
}

// --- comments --------------------------------------------------------------

func (e *Extractor) extractComment(el *changelog.Element) Result {
	activity := el.Activity
	rn := el.ResourceName

	commentID := getString(activity, "id")
	if strings.HasPrefix(commentID, "urn:li:") {
		commentID = urn.ExtractID(commentID)
	}
	if commentID == "" {
		return e.skip(KindComment, "comment_no_id_"+rn)
	}
	postURN := getString(activity, "object")
	if postURN == "" {
		return e.skip(KindComment, "comment_no_post_urn_"+rn)
	}
	actor := actorOf(el, activity)
	if actor == "" {
		return e.skip(KindComment, "comment_no_actor_"+rn)
	}

	commentURN := urn.BuildComment(postURN, commentID)
	if commentURN == "" {
		return e.skip(KindComment, "comment_invalid_urn_"+rn)
	}
	e.trace("comment URN %s (parent %s, id %s)", commentURN, postURN, commentID)

	ts := digNumber(activity, "created", "time")
	text := digString(activity, "message", "text")
	commentURL := urn.CommentToPostURL(commentURN)

	commentProps := relProps(ts)
	commentProps["comment_id"] = commentID
	commentProps["text"] = truncate(text, contentSnippet)
	commentProps["url"] = commentURL
	if text != "" {
		if urls := enrich.ExtractURLs(text); len(urls) > 0 {
			commentProps["extracted_urls"] = urls
		}
		e.contents[commentURN] = text
	}
	e.upsertComment(commentURN, commentProps)

	e.upsertPost(postURN, nil)
	e.upsertPerson(actor)

	parentComment := replyParentURN(activity, postURN)
	if parentComment != "" {
		e.trace("reply to parent comment %s", parentComment)
		stub := map[string]interface{}{
			"url": urn.CommentToPostURL(parentComment),
		}
		if parsed, ok := urn.ParseComment(parentComment); ok && parsed.CommentID != "" {
			stub["comment_id"] = parsed.CommentID
		}
		e.upsertComment(parentComment, stub)
	}

	e.addRelationship(graph.RelIsAuthorOf, actor, commentURN, relProps(ts))

	target := postURN
	if parentComment != "" {
		target = parentComment
	}
	e.addRelationship(graph.RelCommentsOn, commentURN, target, relProps(ts))
	e.trace("COMMENTS_ON %s → %s", commentURN, target)

	e.records = append(e.records, store.ActivityRecord{
		Owner:        el.Owner,
		ActivityType: store.ActivityComment,
		Time:         recordTime(ts, el),
		AuthorURN:    actor,
		ActivityURN:  commentURN,
		PostURL:      commentURL,
		Content:      truncate(text, contentSnippet),
		ParentURN:    target,
		CreatedAt:    formatTime(ts),
	})

	return Ok(KindComment)
}

// parentCommentKeys are the places a reply's parent comment has been seen,
// in responseContext first and then the activity itself.
var parentCommentKeys = []string{
	"parent",
	"parentComment",
	"parentCommentUrn",
	"parentCommentURN",
	"parentCommentId",
	"parentCommentID",
}

// replyParentURN finds the parent comment of a reply, or "". A bare
// numeric id becomes a composite URN on the same parent post.
func replyParentURN(activity map[string]interface{}, postURN string) string {
	for _, container := range []map[string]interface{}{getMap(activity, "responseContext"), activity} {
		if container == nil {
			continue
		}
		for _, key := range parentCommentKeys {
			v, present := container[key]
			if !present {
				continue
			}
			if built := maybeCommentURN(postURN, v); built != "" {
				return built
			}
		}
	}
	return ""
}

func maybeCommentURN(postURN string, v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "urn:li:comment:") {
			return val
		}
		if isDigits(val) {
			return urn.BuildComment(postURN, val)
		}
	default:
		if n := asInt64(v); n > 0 {
			return urn.BuildComment(postURN, strconv.FormatInt(n, 10))
		}
	}
	return ""
}

// --- instant reposts -------------------------------------------------------

func (e *Extractor) extractInstantRepost(el *changelog.Element) Result {
	activity := el.Activity
	rn := el.ResourceName

	share := digString(activity, "repostedContent", "share")
	if share == "" {
		return e.skip(KindInstantRepost, "instant_repost_no_share_"+rn)
	}
	actor := actorOf(el, activity)
	if actor == "" {
		return e.skip(KindInstantRepost, "instant_repost_no_author_"+rn)
	}

	ts := digNumber(activity, "created", "time")

	e.upsertPost(share, nil)
	e.upsertPerson(actor)

	props := relProps(ts)
	props["repost_type"] = "instant"
	e.addRelationship(graph.RelReposts, actor, share, props)
	e.trace("REPOSTS %s → %s (instant)", actor, share)

	e.records = append(e.records, store.ActivityRecord{
		Owner:        el.Owner,
		ActivityType: store.ActivityInstantRepost,
		Time:         recordTime(ts, el),
		AuthorURN:    actor,
		ActivityURN:  share,
		PostURL:      urn.ToPostURL(share),
		CreatedAt:    formatTime(ts),
	})

	return Ok(KindInstantRepost)
}

// --- node upserts ----------------------------------------------------------

func (e *Extractor) upsertPerson(personURN string) {
	if !strings.HasPrefix(personURN, "urn:li:person:") {
		return
	}
	id := urn.ExtractID(personURN)
	if id == "" {
		return
	}
	node, ok := e.persons[personURN]
	if !ok {
		node = graph.NewNode(personURN, graph.LabelPerson)
		e.persons[personURN] = node
	}
	node.MergeMissing(map[string]interface{}{"person_id": id})
}

func (e *Extractor) upsertPost(postURN string, props map[string]interface{}) {
	if postURN == "" {
		return
	}
	id := urn.ExtractID(postURN)
	if id == "" {
		return
	}
	node, ok := e.posts[postURN]
	if !ok {
		node = graph.NewNode(postURN, graph.LabelPost)
		node.Properties["post_id"] = id
		node.Properties["url"] = urn.ToPostURL(postURN)
		e.posts[postURN] = node
	}
	node.MergeMissing(props)
}

func (e *Extractor) upsertComment(commentURN string, props map[string]interface{}) {
	if commentURN == "" {
		return
	}
	node, ok := e.comments[commentURN]
	if !ok {
		node = graph.NewNode(commentURN, graph.LabelComment)
		e.comments[commentURN] = node
	}
	node.MergeMissing(props)
}

// upsertReactionTarget stubs a node for whatever a reaction points at.
// Comment URNs become Comment nodes so that reactions to comments do not
// shadow them as posts.
func (e *Extractor) upsertReactionTarget(target string) {
	if strings.HasPrefix(target, "urn:li:comment:") {
		props := map[string]interface{}{
			"url": urn.CommentToPostURL(target),
		}
		if parsed, ok := urn.ParseComment(target); ok && parsed.CommentID != "" {
			props["comment_id"] = parsed.CommentID
		}
		e.upsertComment(target, props)
		return
	}
	e.upsertPost(target, nil)
}

func (e *Extractor) addRelationship(relType, from, to string, props map[string]interface{}) {
	e.relationships = append(e.relationships, graph.Relationship{
		Type:       relType,
		From:       from,
		To:         to,
		Properties: props,
	})
}

// --- accessors -------------------------------------------------------------

// Nodes returns all accumulated nodes: people, then posts, then comments.
func (e *Extractor) Nodes() []*graph.Node {
	out := make([]*graph.Node, 0, len(e.persons)+len(e.posts)+len(e.comments))
	for _, m := range []map[string]*graph.Node{e.persons, e.posts, e.comments} {
		for _, node := range m {
			out = append(out, node)
		}
	}
	return out
}

// Relationships returns the accumulated edges in extraction order.
func (e *Extractor) Relationships() []graph.Relationship {
	return e.relationships
}

// Records returns the CSV activity records in extraction order.
func (e *Extractor) Records() []store.ActivityRecord {
	return e.records
}

// Contents returns full untruncated bodies by URN.
func (e *Extractor) Contents() map[string]string {
	return e.contents
}

// Skips returns the skip-reason counters.
func (e *Extractor) Skips() map[string]int {
	return e.skips
}

// Counts returns how many elements resolved to each kind.
func (e *Extractor) Counts() map[ElementKind]int {
	return e.counts
}

// --- shared helpers --------------------------------------------------------

// actorOf prefers the element-level actor, falling back to activity.actor.
func actorOf(el *changelog.Element, activity map[string]interface{}) string {
	if el.Actor != "" {
		return el.Actor
	}
	return getString(activity, "actor")
}

// isDelete reports whether the element records a deletion.
func isDelete(el *changelog.Element) bool {
	method := el.Method
	if method == "" {
		method = el.MethodName
	}
	return strings.EqualFold(method, "DELETE")
}

// relProps builds the base relationship property map. Zero timestamps are
// left out entirely rather than stored as 0.
func relProps(ts int64) map[string]interface{} {
	props := make(map[string]interface{})
	if ts > 0 {
		props["timestamp"] = ts
		props["created_at"] = formatTime(ts)
	}
	return props
}

// recordTime is the CSV row time: the activity's own creation time when
// known, else when LinkedIn captured the element.
func recordTime(ts int64, el *changelog.Element) int64 {
	if ts > 0 {
		return ts
	}
	return el.CapturedAt
}
