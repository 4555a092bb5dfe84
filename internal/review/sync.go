package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/extract"
)

// SyncResult reports what a sync pass changed.
type SyncResult struct {
	Inserted int
	Updated  int
}

// Sync upserts changelog elements and their extraction previews into the
// store. Existing review state (status, notes, corrections) is preserved;
// only the raw element and its extraction delta are refreshed.
func Sync(ctx context.Context, st Store, elements []changelog.Element) (SyncResult, error) {
	var res SyncResult

	for i := range elements {
		el := &elements[i]

		raw, err := json.Marshal(el)
		if err != nil {
			return res, fmt.Errorf("marshal element %s: %w", ElementID(el), err)
		}

		preview := extract.PreviewElement(el)
		preview.Trace = nil // recomputed on demand, not persisted
		extracted, err := json.Marshal(preview)
		if err != nil {
			return res, fmt.Errorf("marshal extraction preview: %w", err)
		}

		created, err := st.UpsertExtraction(ctx, Item{
			ElementID:     ElementID(el),
			ProcessedAt:   el.ProcessedAt,
			ResourceName:  el.ResourceName,
			MethodName:    el.MethodName,
			RawJSON:       string(raw),
			ExtractedJSON: string(extracted),
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	return res, nil
}
