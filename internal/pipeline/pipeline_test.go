package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/store"
)

func longBody(seed string) string {
	return seed + " " + strings.Repeat("content ", 10)
}

func TestStoreRecords(t *testing.T) {
	contentStore := store.NewContentStore(filepath.Join(t.TempDir(), "content"))
	p := New(contentStore, nil, nil)

	records := []Activity{
		{PostURN: "urn:li:share:1", Content: longBody("first"), URLs: []string{"https://example.com"},
			InteractionType: InteractionReaction, Timestamp: 1700000000000,
			PostURL: "https://www.linkedin.com/feed/update/urn:li:share:1"},
		{PostURN: "urn:li:share:1", Content: longBody("duplicate")},
		{PostURN: "urn:li:share:2", Content: "too short"},
		{PostURN: "", Content: longBody("no urn")},
	}

	stored := p.storeRecords(records)

	assert.Equal(t, 1, stored)
	content, err := contentStore.Load("urn:li:share:1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "first"))

	meta, err := contentStore.LoadMeta("urn:li:share:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, meta.URLs)
	assert.Equal(t, InteractionReaction, meta.InteractionType)
	assert.Equal(t, int64(1700000000000), meta.Timestamp)
	assert.False(t, contentStore.Has("urn:li:share:2"))
}

func TestStoreRecordsKeepsExistingSummary(t *testing.T) {
	contentStore := store.NewContentStore(filepath.Join(t.TempDir(), "content"))
	p := New(contentStore, nil, nil)

	require.NoError(t, contentStore.Save("urn:li:share:1", longBody("v1")))
	require.NoError(t, contentStore.SaveMeta(&store.ContentMeta{
		URN:     "urn:li:share:1",
		Summary: "already summarized",
	}))

	p.storeRecords([]Activity{{
		PostURN:         "urn:li:share:1",
		Content:         longBody("v2"),
		InteractionType: InteractionRepost,
	}})

	meta, err := contentStore.LoadMeta("urn:li:share:1")
	require.NoError(t, err)
	assert.Equal(t, "already summarized", meta.Summary)
	assert.Equal(t, InteractionRepost, meta.InteractionType)
}

func TestSeedFromJSON(t *testing.T) {
	dir := t.TempDir()
	contentStore := store.NewContentStore(filepath.Join(dir, "content"))

	records := []Activity{
		{PostURN: "urn:li:share:1", Content: longBody("first"), URLs: []string{"https://a.example"}},
		{PostURN: "urn:li:share:1", Content: longBody("dup")},
		{PostURN: "urn:li:share:2", Content: "short"},
		{PostURN: "urn:li:share:3", Content: longBody("third")},
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	seedPath := filepath.Join(dir, "activities_enriched.json")
	require.NoError(t, os.WriteFile(seedPath, raw, 0644))

	count, err := SeedFromJSON(contentStore, seedPath)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, contentStore.Has("urn:li:share:1"))
	assert.True(t, contentStore.Has("urn:li:share:3"))

	pending, err := contentStore.NeedingSummary(0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSeedFromJSONWrappedShape(t *testing.T) {
	dir := t.TempDir()
	contentStore := store.NewContentStore(filepath.Join(dir, "content"))

	seedPath := filepath.Join(dir, "seed.json")
	payload := map[string]any{"activities": []Activity{
		{PostURN: "urn:li:share:9", Content: longBody("wrapped")},
	}}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(seedPath, raw, 0644))

	count, err := SeedFromJSON(contentStore, seedPath)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, contentStore.Has("urn:li:share:9"))
}

func TestRunIDIsStable(t *testing.T) {
	p := New(store.NewContentStore(t.TempDir()), nil, nil)
	assert.NotEmpty(t, p.RunID())
	assert.Equal(t, p.RunID(), p.RunID())
}
