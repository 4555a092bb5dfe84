package review

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

func newTestServer(t *testing.T) (*Server, *SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	srv := NewServer(store, ServerConfig{
		Addr:        ":0",
		FixturesDir: filepath.Join(t.TempDir(), "fixtures"),
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_QueueAndStatusFlow(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.UpsertExtraction(ctx, testItem("aaa", 100))
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queueResp struct {
		Count int `json:"count"`
		Items []struct {
			ElementID string          `json:"element_id"`
			Status    string          `json:"status"`
			Raw       json.RawMessage `json:"raw"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queueResp))
	require.Equal(t, 1, queueResp.Count)
	assert.Equal(t, "aaa", queueResp.Items[0].ElementID)
	assert.Equal(t, StatusPending, queueResp.Items[0].Status)
	assert.JSONEq(t, `{"resourceName":"socialActions/likes"}`, string(queueResp.Items[0].Raw))

	rec = doJSON(t, srv, http.MethodPost, "/api/items/aaa/status", map[string]string{"status": StatusValidated})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queueResp))
	assert.Equal(t, 0, queueResp.Count)

	rec = doJSON(t, srv, http.MethodGet, "/api/items/aaa", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), StatusValidated)
}

func TestServer_StatusValidation(t *testing.T) {
	srv, store := newTestServer(t)

	_, err := store.UpsertExtraction(context.Background(), testItem("aaa", 100))
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/items/aaa/status", map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/items/missing/status", map[string]string{"status": StatusSkipped})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CorrectionRoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.UpsertExtraction(ctx, testItem("aaa", 100))
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/items/aaa/correction", map[string]interface{}{
		"corrected": map[string]interface{}{"nodes": []string{}},
		"notes":     "trimmed a stray node",
		"status":    StatusNeedsFix,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	item, err := store.Get(ctx, "aaa")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[]}`, item.CorrectedJSON)
	assert.Equal(t, "trimmed a stray node", item.Notes)
	assert.Equal(t, StatusNeedsFix, item.Status)
}

func TestServer_PreviewRecomputesTrace(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	el := changelog.Element{
		ProcessedAt:  100,
		ResourceName: "socialActions/likes",
		Method:       "CREATE",
		Actor:        "urn:li:person:abc",
		Activity: map[string]interface{}{
			"root":         "urn:li:ugcPost:111",
			"reactionType": "LIKE",
			"created":      map[string]interface{}{"time": int64(100)},
		},
	}
	_, err := Sync(ctx, store, []changelog.Element{el})
	require.NoError(t, err)

	id := ElementID(&el)
	rec := doJSON(t, srv, http.MethodGet, "/api/items/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview struct {
		Nodes []json.RawMessage `json:"nodes"`
		Trace []string          `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.NotEmpty(t, preview.Nodes)
	assert.NotEmpty(t, preview.Trace)
}

func TestServer_SyncUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_SyncFetchesAndReports(t *testing.T) {
	store := newTestStore(t)
	elements := []changelog.Element{
		{ProcessedAt: 100, ResourceName: "socialActions/likes", Method: "CREATE"},
	}
	srv := NewServer(store, ServerConfig{
		Addr:        ":0",
		FixturesDir: t.TempDir(),
		Fetch: func(ctx context.Context, startTime int64) ([]changelog.Element, error) {
			return elements, nil
		},
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Fetched  int `json:"fetched"`
		Inserted int `json:"inserted"`
		Queue    int `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Fetched)
	assert.Equal(t, 1, resp.Inserted)
	assert.Equal(t, 1, resp.Queue)
}
