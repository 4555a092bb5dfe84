package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentMeta_Roundtrip(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))

	meta := &ContentMeta{
		URN:          "urn:li:share:1",
		PostURL:      "https://www.linkedin.com/feed/update/urn:li:share:1",
		URLs:         []string{"https://github.com/a/b"},
		Summary:      "Announces a release.",
		Topics:       []string{"releases"},
		Technologies: []string{"Go"},
		Category:     "product_announcement",
		RunID:        "run-1",
	}
	require.NoError(t, s.SaveMeta(meta))

	loaded, err := s.LoadMeta("urn:li:share:1")
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)
}

func TestContentMeta_LoadMissingYieldsEmpty(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))

	meta, err := s.LoadMeta("urn:li:share:404")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:404", meta.URN)
	assert.Empty(t, meta.Summary)
}

func TestContentMeta_SaveRequiresURN(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))
	assert.Error(t, s.SaveMeta(&ContentMeta{}))
	assert.Error(t, s.SaveMeta(nil))
}

func TestContentMeta_PathBesideContent(t *testing.T) {
	s := NewContentStore("/data/content")

	contentPath := s.Path("urn:li:share:1")
	metaPath := s.MetaPath("urn:li:share:1")

	assert.Equal(t, strings.TrimSuffix(contentPath, ".md")+".meta.json", metaPath)
	assert.Equal(t, filepath.Dir(contentPath), filepath.Dir(metaPath))
}

func TestNeedingSummary(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))

	// summarized, pending, and sidecar-without-content entries
	require.NoError(t, s.Save("urn:li:share:1", "body one"))
	require.NoError(t, s.SaveMeta(&ContentMeta{URN: "urn:li:share:1", Summary: "done"}))

	require.NoError(t, s.Save("urn:li:share:2", "body two"))
	require.NoError(t, s.SaveMeta(&ContentMeta{URN: "urn:li:share:2"}))

	require.NoError(t, s.SaveMeta(&ContentMeta{URN: "urn:li:share:3"}))

	pending, err := s.NeedingSummary(0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "urn:li:share:2", pending[0].URN)
}

func TestNeedingSummary_Limit(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "content"))

	for _, urn := range []string{"urn:li:share:1", "urn:li:share:2", "urn:li:share:3"} {
		require.NoError(t, s.Save(urn, "body for "+urn))
		require.NoError(t, s.SaveMeta(&ContentMeta{URN: urn}))
	}

	pending, err := s.NeedingSummary(2)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestNeedingSummary_MissingDir(t *testing.T) {
	s := NewContentStore(filepath.Join(t.TempDir(), "never-created"))
	pending, err := s.NeedingSummary(0)
	require.NoError(t, err)
	assert.Nil(t, pending)
}
