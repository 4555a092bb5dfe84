package extract

import (
	"strings"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

// DirectionalCount splits an activity count by who initiated it.
type DirectionalCount struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
	Total    int `json:"total"`
}

// PostCounts breaks posts down by share type.
type PostCounts struct {
	Original          int `json:"original"`
	Repost            int `json:"repost"`
	RepostWithComment int `json:"repost_with_comment"`
	Total             int `json:"total"`
}

// Statistics summarizes a changelog slice without extracting entities. It
// covers resources the graph ignores (messages, invitations) as well as the
// ones it extracts.
type Statistics struct {
	Messages      DirectionalCount                  `json:"messages"`
	Invites       DirectionalCount                  `json:"invites"`
	Reactions     map[string]int                    `json:"reactions"`
	Posts         PostCounts                        `json:"posts"`
	CommentsTotal int                               `json:"comments_total"`
	ResourceTypes map[string]int                    `json:"resource_types"`
	MethodTypes   map[string]int                    `json:"method_types"`
	// Examples keeps the first activity payload seen per resourceName,
	// for eyeballing unfamiliar resources.
	Examples map[string]map[string]interface{} `json:"resource_examples,omitempty"`
}

// CollectStatistics tallies activity counters over changelog elements.
//
// Sent vs received is judged against the first actor seen: member changelogs
// are single-member exports, so the first actor is the member.
func CollectStatistics(elements []changelog.Element) *Statistics {
	stats := &Statistics{
		Reactions:     make(map[string]int),
		ResourceTypes: make(map[string]int),
		MethodTypes:   make(map[string]int),
		Examples:      make(map[string]map[string]interface{}),
	}

	var userActor string

	for i := range elements {
		el := &elements[i]
		rn := el.ResourceName
		rnLower := strings.ToLower(rn)
		activity := el.Activity

		stats.ResourceTypes[rn]++
		stats.MethodTypes[methodOf(el)]++

		if rn != "" {
			if _, seen := stats.Examples[rn]; !seen {
				stats.Examples[rn] = activity
			}
		}

		if userActor == "" && el.Actor != "" {
			userActor = el.Actor
		}

		switch {
		case strings.Contains(rnLower, "messages"):
			stats.Messages.Total++
			if el.Actor == userActor {
				stats.Messages.Sent++
			} else {
				stats.Messages.Received++
			}

		case strings.Contains(rnLower, "invitation"):
			stats.Invites.Total++
			if el.Actor == userActor {
				stats.Invites.Sent++
			} else {
				stats.Invites.Received++
			}

		case strings.Contains(rn, resourceReactions) || strings.Contains(rnLower, "reaction"):
			reactionType := getString(activity, "reactionType")
			if reactionType == "" {
				reactionType = "UNKNOWN"
			}
			stats.Reactions[reactionType]++

		case strings.Contains(rnLower, resourcePosts):
			stats.Posts.Total++
			if truthy(activity["resharedPost"]) || truthy(activity["resharedActivity"]) {
				if truthy(activity["commentary"]) || truthy(activity["text"]) {
					stats.Posts.RepostWithComment++
				} else {
					stats.Posts.Repost++
				}
			} else {
				stats.Posts.Original++
			}

		case strings.Contains(rnLower, "comment"):
			stats.CommentsTotal++
		}
	}

	return stats
}

func methodOf(el *changelog.Element) string {
	if el.MethodName != "" {
		return el.MethodName
	}
	return el.Method
}
