package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/urn"
)

// Interaction types an Activity can carry
const (
	InteractionReaction = "reaction"
	InteractionRepost   = "repost"
	InteractionComment  = "comment"
)

// Activity is one interaction with a post inside the summarized period
type Activity struct {
	PostURN         string   `json:"post_urn"`
	PostURL         string   `json:"post_url,omitempty"`
	Content         string   `json:"content"`
	URLs            []string `json:"urls"`
	InteractionType string   `json:"interaction_type"`
	ReactionType    string   `json:"reaction_type,omitempty"`
	Timestamp       int64    `json:"timestamp,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	CommentText     string   `json:"comment_text,omitempty"`
	CommentURN      string   `json:"comment_urn,omitempty"`
}

// ParseWindow converts a period like "7d", "2w" or "1m" to the cutoff
// in epoch milliseconds. A month counts as 30 days.
func ParseWindow(value string) (int64, error) {
	if len(value) < 2 {
		return 0, fmt.Errorf("invalid period %q; use e.g. 7d, 14d, 30d", value)
	}
	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid period %q; use e.g. 7d, 14d, 30d", value)
	}
	var delta time.Duration
	switch strings.ToLower(value[len(value)-1:]) {
	case "d":
		delta = time.Duration(n) * 24 * time.Hour
	case "w":
		delta = time.Duration(n) * 7 * 24 * time.Hour
	case "m":
		delta = time.Duration(n) * 30 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid period %q; use e.g. 7d, 14d, 30d", value)
	}
	return time.Now().UTC().Add(-delta).UnixMilli(), nil
}

// CollectOptions bound what CollectActivities returns
type CollectOptions struct {
	Types   []string // nil means all three
	StartMS int64    // 0 means unbounded
	EndMS   int64
}

// Legacy relationship names appear in caches written before the schema
// migration; reads tolerate both.
func isReactionRel(t string) bool { return t == graph.RelReactedTo || t == "REACTS_TO" }
func isAuthorRel(t string) bool   { return t == graph.RelIsAuthorOf || t == "CREATES" }
func isCommentOnRel(t string) bool {
	return t == graph.RelCommentsOn || t == "ON_POST"
}

// InferUserActor finds the data owner's URN. Reaction edges always
// start at the owner, so the first person-sourced one identifies them.
func InferUserActor(data *graph.CacheData) string {
	for _, rel := range data.Relationships {
		if isReactionRel(rel.Type) && strings.HasPrefix(rel.From, "urn:li:person:") {
			return rel.From
		}
	}
	return ""
}

// CollectActivities walks an extraction cache and returns one Activity
// per (post, interaction type) inside the time bounds. Without an
// inferable owner there is nothing to attribute, so the result is empty.
func CollectActivities(data *graph.CacheData, opts CollectOptions) []Activity {
	actor := InferUserActor(data)
	if actor == "" {
		return nil
	}

	wanted := map[string]bool{}
	if len(opts.Types) == 0 {
		wanted[InteractionReaction] = true
		wanted[InteractionRepost] = true
		wanted[InteractionComment] = true
	} else {
		for _, t := range opts.Types {
			wanted[strings.TrimSpace(t)] = true
		}
	}

	c := &collector{
		data:    data,
		actor:   actor,
		startMS: opts.StartMS,
		endMS:   opts.EndMS,
		seen:    map[string]bool{},
	}
	if wanted[InteractionReaction] {
		c.collectReactions()
	}
	if wanted[InteractionRepost] {
		c.collectReposts()
	}
	if wanted[InteractionComment] {
		c.collectComments()
	}
	return c.records
}

type collector struct {
	data    *graph.CacheData
	actor   string
	startMS int64
	endMS   int64
	seen    map[string]bool
	records []Activity
}

func (c *collector) inRange(ts int64) bool {
	if ts == 0 {
		return true
	}
	if c.startMS > 0 && ts < c.startMS {
		return false
	}
	if c.endMS > 0 && ts > c.endMS {
		return false
	}
	return true
}

// add records an activity unless its (post, type) pair was already
// taken or the timestamp falls outside the window. An out-of-range
// activity does not reserve the pair.
func (c *collector) add(a Activity) {
	key := a.PostURN + "|" + a.InteractionType
	if c.seen[key] {
		return
	}
	if !c.inRange(a.Timestamp) {
		return
	}
	c.seen[key] = true
	if a.PostURL == "" && strings.HasPrefix(a.PostURN, "urn:li:") {
		a.PostURL = urn.ToPostURL(a.PostURN)
	}
	if a.Timestamp > 0 {
		a.CreatedAt = time.UnixMilli(a.Timestamp).UTC().Format(time.RFC3339)
	}
	c.records = append(c.records, a)
}

func (c *collector) collectReactions() {
	for _, rel := range c.data.Relationships {
		if !isReactionRel(rel.Type) || rel.From != c.actor {
			continue
		}
		post := c.data.Nodes[rel.To]
		content := propString(post, "content")
		urls := propStrings(post, "extracted_urls")
		if content != "" && len(urls) == 0 {
			urls = enrich.ExtractURLs(content)
		}
		c.add(Activity{
			PostURN:         rel.To,
			PostURL:         propString(post, "url"),
			Content:         content,
			URLs:            urls,
			InteractionType: InteractionReaction,
			ReactionType:    relPropString(rel, "reaction_type"),
			Timestamp:       rel.Timestamp(),
		})
	}
}

// collectReposts records the user's reposts against the original post
// when the repost share knows it; content falls back to the original's.
func (c *collector) collectReposts() {
	for _, rel := range c.data.Relationships {
		if rel.Type != graph.RelReposts || rel.From != c.actor {
			continue
		}
		repost := c.data.Nodes[rel.To]
		originalURN := propString(repost, "original_post_urn")
		target := rel.To
		if originalURN != "" {
			target = originalURN
		}

		content := propString(repost, "content")
		urls := propStrings(repost, "extracted_urls")
		if content != "" && len(urls) == 0 {
			urls = enrich.ExtractURLs(content)
		}
		ts := propInt64(repost, "timestamp")

		if content == "" && originalURN != "" {
			original := c.data.Nodes[originalURN]
			content = propString(original, "content")
			if len(urls) == 0 {
				urls = propStrings(original, "extracted_urls")
				if len(urls) == 0 {
					urls = enrich.ExtractURLs(content)
				}
			}
		}
		c.add(Activity{
			PostURN:         target,
			Content:         content,
			URLs:            urls,
			InteractionType: InteractionRepost,
			Timestamp:       ts,
		})
	}
}

func (c *collector) collectComments() {
	var commentURNs []string
	for _, rel := range c.data.Relationships {
		if isAuthorRel(rel.Type) && rel.From == c.actor {
			commentURNs = append(commentURNs, rel.To)
		}
	}
	for _, commentURN := range commentURNs {
		for _, rel := range c.data.Relationships {
			if !isCommentOnRel(rel.Type) || rel.From != commentURN {
				continue
			}
			comment := c.data.Nodes[commentURN]
			commentText := propString(comment, "text")
			urls := propStrings(comment, "extracted_urls")
			if commentText != "" && len(urls) == 0 {
				urls = enrich.ExtractURLs(commentText)
			}

			post := c.data.Nodes[rel.To]
			content := propString(post, "content")
			if len(urls) == 0 && content != "" {
				urls = propStrings(post, "extracted_urls")
				if len(urls) == 0 {
					urls = enrich.ExtractURLs(content)
				}
			}
			c.add(Activity{
				PostURN:         rel.To,
				PostURL:         propString(post, "url"),
				Content:         content,
				URLs:            urls,
				InteractionType: InteractionComment,
				Timestamp:       propInt64(comment, "timestamp"),
				CommentText:     commentText,
				CommentURN:      commentURN,
			})
		}
	}
}

func propString(n *graph.Node, key string) string {
	if n == nil {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

func propStrings(n *graph.Node, key string) []string {
	if n == nil {
		return nil
	}
	var out []string
	switch v := n.Properties[key].(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func propInt64(n *graph.Node, key string) int64 {
	if n == nil {
		return 0
	}
	switch v := n.Properties[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func relPropString(rel graph.Relationship, key string) string {
	s, _ := rel.Properties[key].(string)
	return s
}
