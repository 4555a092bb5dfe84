package changelog

import (
	"encoding/json"
	"time"
)

// Element is one entry from the LinkedIn Member Changelog API.
// Activity stays schemaless: LinkedIn varies the payload shape per
// resource, so typed decoding happens downstream per element kind.
type Element struct {
	ID                int64                    `json:"id"`
	CapturedAt        int64                    `json:"capturedAt"`
	ProcessedAt       int64                    `json:"processedAt"`
	ConfigVersion     int                      `json:"configVersion,omitempty"`
	Owner             string                   `json:"owner,omitempty"`
	Actor             string                   `json:"actor,omitempty"`
	ResourceName      string                   `json:"resourceName"`
	ResourceID        string                   `json:"resourceId,omitempty"`
	ResourceURI       string                   `json:"resourceUri,omitempty"`
	Method            string                   `json:"method"`
	MethodName        string                   `json:"methodName,omitempty"`
	Activity          map[string]interface{}   `json:"activity,omitempty"`
	ProcessedActivity map[string]interface{}   `json:"processedActivity,omitempty"`
	SiblingActivities []map[string]interface{} `json:"siblingActivities,omitempty"`
	ActivityID        string                   `json:"activityId,omitempty"`
	ActivityStatus    string                   `json:"activityStatus,omitempty"`
}

// CapturedTime converts the capturedAt epoch milliseconds to time.Time
func (e *Element) CapturedTime() time.Time {
	return time.UnixMilli(e.CapturedAt)
}

// ProcessedTime converts the processedAt epoch milliseconds to time.Time
func (e *Element) ProcessedTime() time.Time {
	return time.UnixMilli(e.ProcessedAt)
}

// ActivityURN picks the best URN identifying this element's activity:
// $URN, then urn, then id, then object. Numeric ids (comment ids arrive
// as bare numbers) are returned in decimal form.
func (e *Element) ActivityURN() string {
	for _, key := range []string{"$URN", "urn", "id", "object"} {
		switch v := e.Activity[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// PagingLink is one entry of paging.links in a changelog response
type PagingLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Paging carries the pagination state of a changelog response
type Paging struct {
	Start int          `json:"start"`
	Count int          `json:"count"`
	Total int          `json:"total,omitempty"`
	Links []PagingLink `json:"links,omitempty"`
}

// HasNext reports whether another page follows this one
func (p Paging) HasNext() bool {
	for _, link := range p.Links {
		if link.Rel == "next" {
			return true
		}
	}
	return false
}

// Page is one decoded page of changelog elements
type Page struct {
	Elements []Element `json:"elements"`
	Paging   Paging    `json:"paging"`
}
