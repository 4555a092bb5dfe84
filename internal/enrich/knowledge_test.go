package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/graph"
)

func TestValidateExtraction(t *testing.T) {
	t.Run("keeps valid entities and relations", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Technology"},
				{Name: "GraphRAG", Label: "Concept"},
			},
			Relations: []extractedRelation{
				{From: "GraphRAG", Type: "RELATED_TO", To: "Neo4j"},
			},
		}

		entities, relations := validateExtraction(ext)
		assert.Len(t, entities, 2)
		require.Len(t, relations, 1)
		assert.Equal(t, extractedRelation{From: "GraphRAG", Type: "RELATED_TO", To: "Neo4j"}, relations[0])
	})

	t.Run("drops unknown labels and blank names", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Database"},
				{Name: "   ", Label: "Technology"},
				{Name: "Go", Label: "Technology"},
			},
		}

		entities, _ := validateExtraction(ext)
		require.Len(t, entities, 1)
		assert.Equal(t, "Go", entities[0].Name)
	})

	t.Run("drops duplicate entity names", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Technology"},
				{Name: "Neo4j", Label: "Concept"},
			},
		}

		entities, _ := validateExtraction(ext)
		require.Len(t, entities, 1)
		assert.Equal(t, "Technology", entities[0].Label)
	})

	t.Run("drops relations referencing unknown entities", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Technology"},
			},
			Relations: []extractedRelation{
				{From: "Neo4j", Type: "RELATED_TO", To: "Postgres"},
			},
		}

		_, relations := validateExtraction(ext)
		assert.Empty(t, relations)
	})

	t.Run("drops relations outside allowed patterns", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Technology"},
				{Name: "slow writes", Label: "Challenge"},
			},
			Relations: []extractedRelation{
				{From: "slow writes", Type: "HAS_CHALLENGE", To: "Neo4j"},
				{From: "Neo4j", Type: "HAS_CHALLENGE", To: "slow writes"},
			},
		}

		_, relations := validateExtraction(ext)
		require.Len(t, relations, 1)
		assert.Equal(t, "Neo4j", relations[0].From)
	})

	t.Run("trims relation endpoint names", func(t *testing.T) {
		ext := &extraction{
			Entities: []extractedEntity{
				{Name: "Neo4j", Label: "Technology"},
				{Name: "Go", Label: "Technology"},
			},
			Relations: []extractedRelation{
				{From: " Go ", Type: "RELATED_TO", To: "Neo4j"},
			},
		}

		_, relations := validateExtraction(ext)
		require.Len(t, relations, 1)
		assert.Equal(t, "Go", relations[0].From)
	})
}

func TestBuildEnrichmentStatements(t *testing.T) {
	entities := []extractedEntity{
		{Name: "Neo4j", Label: "Technology"},
		{Name: "Jane Doe", Label: "Person"},
	}
	relations := []extractedRelation{
		{From: "Jane Doe", Type: "CREATED", To: "Neo4j"},
	}

	stmts := buildEnrichmentStatements("urn:li:activity:1", entities, relations)

	// Two statements per entity, one per relation, one enriched marker
	require.Len(t, stmts, 6)

	assert.Contains(t, stmts[0].Query, "MERGE (e:Technology {name: $name})")
	assert.Contains(t, stmts[0].Query, "SET e:"+graph.LabelEntity)
	assert.Contains(t, stmts[1].Query, graph.RelDiscusses)
	assert.Contains(t, stmts[3].Query, graph.RelMentions)
	assert.Contains(t, stmts[4].Query, "CREATED")

	last := stmts[len(stmts)-1]
	assert.Contains(t, last.Query, "n.enriched = true")
	assert.Equal(t, "urn:li:activity:1", last.Params["urn"])
}

func TestSourceLinkType(t *testing.T) {
	assert.Equal(t, graph.RelMentions, sourceLinkType("Person"))
	assert.Equal(t, graph.RelReferences, sourceLinkType("Resource"))
	assert.Equal(t, graph.RelDiscusses, sourceLinkType("Technology"))
	assert.Equal(t, graph.RelDiscusses, sourceLinkType("Concept"))
}

func TestExtractionSystemPrompt(t *testing.T) {
	prompt := extractionSystemPrompt()

	// JSON response format requires the word JSON in the prompt
	assert.Contains(t, prompt, "JSON")
	for _, et := range entityTypes {
		assert.Contains(t, prompt, et.Label)
	}
	assert.True(t, strings.Contains(prompt, "RELATED_TO"))
	assert.Contains(t, prompt, "HAS_CHALLENGE")
}
