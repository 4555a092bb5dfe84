package review

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "review", "review.sqlite3")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testItem(id string, processedAt int64) Item {
	return Item{
		ElementID:     id,
		ProcessedAt:   processedAt,
		ResourceName:  "socialActions/likes",
		MethodName:    "CREATE",
		RawJSON:       `{"resourceName":"socialActions/likes"}`,
		ExtractedJSON: `{"nodes":[],"relationships":[]}`,
	}
}

func TestSQLiteStore_UpsertPreservesReviewState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.UpsertExtraction(ctx, testItem("aaa", 100))
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, store.SetStatus(ctx, "aaa", StatusValidated))
	notes := "checked by hand"
	require.NoError(t, store.UpdateCorrection(ctx, "aaa", CorrectionUpdate{Notes: &notes}))

	// Re-sync with fresh raw data: raw/extracted refresh, review state stays.
	refreshed := testItem("aaa", 150)
	refreshed.RawJSON = `{"resourceName":"socialActions/likes","method":"CREATE"}`
	created, err = store.UpsertExtraction(ctx, refreshed)
	require.NoError(t, err)
	assert.False(t, created)

	item, err := store.Get(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, refreshed.RawJSON, item.RawJSON)
	assert.Equal(t, int64(150), item.ProcessedAt)
	assert.Equal(t, StatusValidated, item.Status)
	assert.Equal(t, "checked by hand", item.Notes)
	assert.NotZero(t, item.UpdatedAt)
}

func TestSQLiteStore_WorkQueueFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, seed := range []struct {
		id          string
		processedAt int64
		status      string
	}{
		{"pending-late", 300, StatusPending},
		{"needsfix-early", 100, StatusNeedsFix},
		{"skipped-mid", 200, StatusSkipped},
		{"validated-out", 50, StatusValidated},
	} {
		_, err := store.UpsertExtraction(ctx, testItem(seed.id, seed.processedAt))
		require.NoError(t, err)
		if seed.status != StatusPending {
			require.NoError(t, store.SetStatus(ctx, seed.id, seed.status))
		}
	}

	queue, err := store.WorkQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 3)

	var ids []string
	for _, item := range queue {
		ids = append(ids, item.ElementID)
	}
	assert.Equal(t, []string{"needsfix-early", "skipped-mid", "pending-late"}, ids)
}

func TestSQLiteStore_SetStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertExtraction(ctx, testItem("aaa", 100))
	require.NoError(t, err)

	assert.ErrorIs(t, store.SetStatus(ctx, "missing", StatusValidated), ErrNotFound)
	assert.Error(t, store.SetStatus(ctx, "aaa", "reviewed-ish"))

	require.NoError(t, store.SetStatus(ctx, "aaa", StatusNeedsFix))
	item, err := store.Get(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsFix, item.Status)
}

func TestSQLiteStore_UpdateCorrectionPartial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertExtraction(ctx, testItem("aaa", 100))
	require.NoError(t, err)

	corrected := `{"nodes":[{"id":"urn:li:person:abc"}]}`
	notes := "wrong actor"
	status := StatusNeedsFix
	require.NoError(t, store.UpdateCorrection(ctx, "aaa", CorrectionUpdate{
		CorrectedJSON: &corrected,
		Notes:         &notes,
		Status:        &status,
	}))

	// A later notes-only update leaves the correction in place.
	newNotes := "fixed actor URN"
	require.NoError(t, store.UpdateCorrection(ctx, "aaa", CorrectionUpdate{Notes: &newNotes}))

	item, err := store.Get(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, corrected, item.CorrectedJSON)
	assert.Equal(t, "fixed actor URN", item.Notes)
	assert.Equal(t, StatusNeedsFix, item.Status)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_CountsByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, status := range []string{StatusPending, StatusPending, StatusValidated} {
		id := string(rune('a' + i))
		_, err := store.UpsertExtraction(ctx, testItem(id, int64(i)))
		require.NoError(t, err)
		if status != StatusPending {
			require.NoError(t, store.SetStatus(ctx, id, status))
		}
	}

	counts, err := store.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StatusPending: 2, StatusValidated: 1}, counts)
}

func TestSync_InsertThenRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	elements := []changelog.Element{
		{
			ProcessedAt:  100,
			ResourceName: "socialActions/likes",
			Method:       "CREATE",
			Actor:        "urn:li:person:abc",
			Activity: map[string]interface{}{
				"root":         "urn:li:ugcPost:111",
				"reactionType": "LIKE",
				"created":      map[string]interface{}{"time": int64(100)},
			},
		},
		{
			ProcessedAt:  200,
			ResourceName: "invitations",
			Method:       "CREATE",
		},
	}

	res, err := Sync(ctx, store, elements)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Updated)

	queue, err := store.WorkQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	// The reaction element carries its extraction delta.
	var preview struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(queue[0].ExtractedJSON), &preview))
	assert.NotEmpty(t, preview.Nodes)
	assert.NotContains(t, queue[0].ExtractedJSON, `"trace"`)

	// Reviewed items survive a second sync untouched.
	require.NoError(t, store.SetStatus(ctx, queue[0].ElementID, StatusValidated))

	res, err = Sync(ctx, store, elements)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Updated)

	item, err := store.Get(ctx, queue[0].ElementID)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, item.Status)
}

func TestExportFixtures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertExtraction(ctx, testItem("plain", 100))
	require.NoError(t, err)

	withFix := testItem("fixed", 200)
	withFix.RawJSON = `{"resourceName":"socialActions/comments"}`
	_, err = store.UpsertExtraction(ctx, withFix)
	require.NoError(t, err)
	corrected := `{"nodes":[{"id":"urn:li:person:abc"}],"relationships":[]}`
	require.NoError(t, store.UpdateCorrection(ctx, "fixed", CorrectionUpdate{CorrectedJSON: &corrected}))

	dir := filepath.Join(t.TempDir(), "fixtures")
	n, err := ExportFixtures(ctx, store, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fixture, err := LoadFixture(filepath.Join(dir, "fixed.json"))
	require.NoError(t, err)
	assert.JSONEq(t, withFix.RawJSON, string(fixture.RawElement))
	assert.JSONEq(t, corrected, string(fixture.ExpectedExtracted))
}
