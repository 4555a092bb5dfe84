package graph

import "strconv"

// Node is one graph node upsert, keyed by URN. The ID doubles as the
// urn property in Neo4j.
type Node struct {
	ID         string                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// NewNode creates a node with its urn property pre-set
func NewNode(id string, labels ...string) *Node {
	return &Node{
		ID:     id,
		Labels: labels,
		Properties: map[string]interface{}{
			"urn": id,
		},
	}
}

// Label returns the primary label
func (n *Node) Label() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// HasLabel reports whether the node carries the given label
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// MergeMissing adds properties the node does not have yet. Existing
// non-empty values win: within a run the first writer of a property
// keeps it, later elements only fill gaps.
func (n *Node) MergeMissing(props map[string]interface{}) {
	for k, v := range props {
		if isEmptyValue(v) {
			continue
		}
		if existing, ok := n.Properties[k]; !ok || isEmptyValue(existing) {
			n.Properties[k] = v
		}
	}
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// Relationship is one edge between two nodes identified by URN
type Relationship struct {
	Type       string                 `json:"type"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Timestamp returns the relationship's timestamp property in epoch ms,
// tolerating the numeric types JSON decoding produces
func (r Relationship) Timestamp() int64 {
	switch v := r.Properties["timestamp"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Key identifies a relationship for cross-run deduplication
func (r Relationship) Key() string {
	return r.From + "|" + r.To + "|" + r.Type + "|" + strconv.FormatInt(r.Timestamp(), 10)
}
