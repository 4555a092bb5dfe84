package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummariesWrappedObject(t *testing.T) {
	text := `Here is the metadata you asked for:
{"posts": [
  {"urn": "urn:li:share:1", "summary": "Ships a graph importer.",
   "topics": ["graphs"], "technologies": ["Neo4j", ""], "people": [], "category": "product_announcement"},
  {"summary": " A paper walkthrough. ", "topics": [], "technologies": [], "people": ["Jane Doe"], "category": "paper"}
]}`

	got := parseSummaries(text, []string{"urn:li:share:1", "urn:li:share:2"})

	require.Len(t, got, 2)
	assert.Equal(t, "urn:li:share:1", got[0].URN)
	assert.Equal(t, "Ships a graph importer.", got[0].Summary)
	assert.Equal(t, []string{"Neo4j"}, got[0].Technologies)

	// missing urn falls back to batch position; strings are trimmed
	assert.Equal(t, "urn:li:share:2", got[1].URN)
	assert.Equal(t, "A paper walkthrough.", got[1].Summary)
	assert.Equal(t, []string{"Jane Doe"}, got[1].People)
	assert.Equal(t, "paper", got[1].Category)
}

func TestParseSummariesBareArray(t *testing.T) {
	text := `[{"urn": "urn:li:share:1", "summary": "First."}, {"urn": "urn:li:share:2", "summary": "Second."}]`

	got := parseSummaries(text, []string{"urn:li:share:1", "urn:li:share:2"})

	require.Len(t, got, 2)
	assert.Equal(t, "First.", got[0].Summary)
	assert.Equal(t, "Second.", got[1].Summary)
}

func TestParseSummariesClampsExtraEntries(t *testing.T) {
	text := `{"posts": [{"urn": "a", "summary": "one"}, {"urn": "b", "summary": "two"}]}`

	got := parseSummaries(text, []string{"a"})

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].URN)
}

func TestParseSummariesGarbage(t *testing.T) {
	assert.Nil(t, parseSummaries("the model refused to answer", []string{"a"}))
	assert.Nil(t, parseSummaries("", []string{"a"}))
	assert.Nil(t, parseSummaries(`{"posts": "not a list"}`, []string{"a"}))
}

func TestBuildPromptBatch(t *testing.T) {
	batch := []pendingPost{
		{URN: "urn:li:share:1", Content: "first body"},
		{URN: "urn:li:share:2", Content: "second body"},
	}

	prompt := buildPromptBatch(batch)

	assert.Contains(t, prompt, "[Post 1]\nURN: urn:li:share:1\nContent:\nfirst body\n")
	assert.Contains(t, prompt, "[Post 2]\nURN: urn:li:share:2\nContent:\nsecond body\n")
}

func TestTruncateContent(t *testing.T) {
	short := strings.Repeat("a", maxSummaryChars)
	assert.Equal(t, short, truncateContent(short, maxSummaryChars))

	long := strings.Repeat("b", maxSummaryChars+1)
	got := truncateContent(long, maxSummaryChars)
	assert.True(t, strings.HasSuffix(got, "\n...[truncated]"))
	assert.Equal(t, maxSummaryChars, len(strings.TrimSuffix(got, "\n...[truncated]")))
}
