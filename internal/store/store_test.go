package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStore_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.csv")
	s := NewCSVStore(path)

	records := []ActivityRecord{
		{
			Owner:       "urn:li:person:me",
			ActivityType: ActivityPost,
			Time:        1700000000000,
			AuthorURN:   "urn:li:person:me",
			ActivityURN: "urn:li:share:111",
			PostURL:     "https://www.linkedin.com/feed/update/urn:li:share:111",
			Content:     "hello, world",
			CreatedAt:   "2023-11-14T22:13:20Z",
		},
		{
			Owner:        "urn:li:person:me",
			ActivityType: ActivityComment,
			Time:         1700000001000,
			AuthorURN:    "urn:li:person:me",
			ActivityURN:  "urn:li:comment:(activity:222,333)",
			ParentURN:    "urn:li:activity:222",
			Content:      "nice post",
		},
	}

	added, err := s.Append(records)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records[0].ActivityURN, loaded[0].ActivityURN)
	assert.Equal(t, int64(1700000000000), loaded[0].Time)
	assert.Equal(t, "hello, world", loaded[0].Content)
	assert.Equal(t, "urn:li:activity:222", loaded[1].ParentURN)
}

func TestCSVStore_DoubleAppendIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.csv")
	s := NewCSVStore(path)

	rec := ActivityRecord{
		ActivityType: ActivityPost,
		ActivityURN:  "urn:li:share:111",
		Time:         1700000000000,
	}

	added, err := s.Append([]ActivityRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// Second append of the same activity_urn adds nothing
	added, err = s.Append([]ActivityRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestCSVStore_DedupWithinBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.csv")
	s := NewCSVStore(path)

	added, err := s.Append([]ActivityRecord{
		{ActivityURN: "urn:li:share:1", ActivityType: ActivityPost},
		{ActivityURN: "urn:li:share:1", ActivityType: ActivityPost},
		{ActivityURN: "urn:li:share:2", ActivityType: ActivityPost},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestCSVStore_LoadMissingFile(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "missing.csv"))
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestContentStore_Roundtrip(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))
	urn := "urn:li:share:7311223344556677889"

	assert.False(t, s.Has(urn))

	full := "A long post body that exceeds any truncation the graph applies.\n\nSecond paragraph."
	require.NoError(t, s.Save(urn, full))

	assert.True(t, s.Has(urn))

	loaded, err := s.Load(urn)
	require.NoError(t, err)
	assert.Equal(t, full, loaded)
}

func TestContentStore_PathIsURNHash(t *testing.T) {
	s := NewContentStore("/data/content")

	p1 := s.Path("urn:li:share:1")
	p2 := s.Path("urn:li:share:2")

	assert.NotEqual(t, p1, p2)
	assert.Equal(t, p1, s.Path("urn:li:share:1"), "path is deterministic")
	assert.Contains(t, p1, ".md")
	assert.NotContains(t, filepath.Base(p1), ":", "URN never leaks into the filename")
}
