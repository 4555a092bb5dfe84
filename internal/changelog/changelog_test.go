package changelog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/config"
)

func testClient(srvURL string) *Client {
	return NewClient("tok-123", config.LinkedInConfig{
		BaseURL:   srvURL,
		Version:   "202312",
		RateLimit: 100,
	})
}

func TestFetchAll_Pagination(t *testing.T) {
	var gotAuth, gotVersion, gotProto string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("LinkedIn-Version")
		gotProto = r.Header.Get("X-Restli-Protocol-Version")
		assert.Equal(t, "memberAndApplication", r.URL.Query().Get("q"))

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		w.Header().Set("Content-Type", "application/json")

		if start == 0 {
			json.NewEncoder(w).Encode(Page{
				Elements: []Element{
					{ID: 1, ProcessedAt: 100, ResourceName: "ugcPosts"},
					{ID: 2, ProcessedAt: 200, ResourceName: "socialActions/likes"},
				},
				Paging: Paging{Start: 0, Count: 2, Links: []PagingLink{{Rel: "next", Href: "/next"}}},
			})
			return
		}
		json.NewEncoder(w).Encode(Page{
			Elements: []Element{
				{ID: 3, ProcessedAt: 300, ResourceName: "socialActions/comments"},
			},
			Paging: Paging{Start: 2, Count: 2},
		})
	}))
	defer srv.Close()

	fetcher := NewFetcher(testClient(srv.URL))

	elements, stats, err := fetcher.FetchAll(context.Background(), Options{PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, elements, 3)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, int64(1), elements[0].ID)
	assert.Equal(t, int64(3), elements[2].ID)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "202312", gotVersion)
	assert.Equal(t, "2.0.0", gotProto)
}

func TestFetchAll_ResourceFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Page{
			Elements: []Element{
				{ID: 1, ResourceName: "ugcPosts"},
				{ID: 2, ResourceName: "socialActions/likes"},
				{ID: 3, ResourceName: "socialActions/comments"},
				{ID: 4, ResourceName: "memberShareInfo"},
			},
			Paging: Paging{},
		})
	}))
	defer srv.Close()

	fetcher := NewFetcher(testClient(srv.URL))

	elements, stats, err := fetcher.FetchAll(context.Background(), Options{
		Resources: []string{"SOCIALACTIONS", "ugcposts"},
	})
	require.NoError(t, err)

	assert.Len(t, elements, 3, "filter is a case-insensitive substring any-of")
	assert.Equal(t, 1, stats.Filtered)
}

func TestFetchAll_StartTimeCutoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server ignores startTime on purpose; the client must re-filter
		json.NewEncoder(w).Encode(Page{
			Elements: []Element{
				{ID: 1, ProcessedAt: 500, ResourceName: "ugcPosts"},
				{ID: 2, ProcessedAt: 1500, ResourceName: "ugcPosts"},
				{ID: 3, ProcessedAt: 2500, ResourceName: "ugcPosts"},
			},
			Paging: Paging{},
		})
	}))
	defer srv.Close()

	fetcher := NewFetcher(testClient(srv.URL))

	elements, _, err := fetcher.FetchAll(context.Background(), Options{StartTime: 1000})
	require.NoError(t, err)

	assert.Len(t, elements, 2)
	assert.Equal(t, int64(2), elements[0].ID)
}

func TestFetchAll_PartialOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		if start == 0 {
			json.NewEncoder(w).Encode(Page{
				Elements: []Element{{ID: 1, ResourceName: "ugcPosts"}},
				Paging:   Paging{Links: []PagingLink{{Rel: "next", Href: "/next"}}},
			})
			return
		}
		// Permanent failure on the second page
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher := NewFetcher(testClient(srv.URL))

	elements, _, err := fetcher.FetchAll(context.Background(), Options{PageSize: 1})
	assert.Error(t, err, "incomplete fetch is reported")
	assert.Len(t, elements, 1, "elements collected before the error are kept")
}

func TestFetchAll_MaxElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always claims another page; the cap must stop the loop
		json.NewEncoder(w).Encode(Page{
			Elements: []Element{
				{ID: 1, ResourceName: "ugcPosts"},
				{ID: 2, ResourceName: "ugcPosts"},
			},
			Paging: Paging{Links: []PagingLink{{Rel: "next", Href: "/next"}}},
		})
	}))
	defer srv.Close()

	fetcher := NewFetcher(testClient(srv.URL))

	elements, _, err := fetcher.FetchAll(context.Background(), Options{MaxElements: 3})
	require.NoError(t, err)
	assert.Len(t, elements, 3)
}

func TestPagingHasNext(t *testing.T) {
	assert.False(t, Paging{}.HasNext())
	assert.False(t, Paging{Links: []PagingLink{{Rel: "prev"}}}.HasNext())
	assert.True(t, Paging{Links: []PagingLink{{Rel: "prev"}, {Rel: "next"}}}.HasNext())
}

func TestActivityURN(t *testing.T) {
	tests := []struct {
		name     string
		activity map[string]interface{}
		expected string
	}{
		{"dollar urn wins", map[string]interface{}{"$URN": "urn:li:a:1", "id": "urn:li:a:2"}, "urn:li:a:1"},
		{"urn second", map[string]interface{}{"urn": "urn:li:a:3", "object": "urn:li:a:4"}, "urn:li:a:3"},
		{"id third", map[string]interface{}{"id": "urn:li:a:5"}, "urn:li:a:5"},
		{"object last", map[string]interface{}{"object": "urn:li:a:6"}, "urn:li:a:6"},
		{"none", map[string]interface{}{"text": "hi"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := Element{Activity: tt.activity}
			assert.Equal(t, tt.expected, el.ActivityURN())
		})
	}
}

func TestLoadLastRun_Missing(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, DefaultStartTime, LoadLastRun(dir))
}

func TestLoadLastRun_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".last_run"), []byte("not-a-number"), 0644))
	assert.Equal(t, DefaultStartTime, LoadLastRun(dir))
}

func TestLastRun_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	ts := time.Now().UnixMilli()
	require.NoError(t, SaveLastRun(dir, ts))
	assert.Equal(t, ts, LoadLastRun(dir))
}

func TestClampLastRun(t *testing.T) {
	now := time.Now()

	assert.Equal(t, DefaultStartTime, clampLastRun(12345, now), "below floor clamps up")

	inWindow := now.UnixMilli()
	assert.Equal(t, inWindow, clampLastRun(inWindow, now))

	farFuture := now.Add(365 * 24 * time.Hour).UnixMilli()
	ceiling := now.Add(30 * 24 * time.Hour).UnixMilli()
	assert.Equal(t, ceiling, clampLastRun(farFuture, now), "future clamps to now+30d")
}
