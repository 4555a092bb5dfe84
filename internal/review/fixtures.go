package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Fixture pairs a raw changelog element with the reviewer-corrected
// extraction, so corrected items can drive regression tests over real
// payloads.
type Fixture struct {
	RawElement        json.RawMessage `json:"raw_element"`
	ExpectedExtracted json.RawMessage `json:"expected_extracted"`
}

// ExportFixtures writes one <element_id>.json fixture per corrected
// review item into dir. Returns the number of files written.
func ExportFixtures(ctx context.Context, st Store, dir string) (int, error) {
	items, err := st.FixtureItems(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create fixtures dir: %w", err)
	}

	written := 0
	for _, item := range items {
		fixture := Fixture{
			RawElement:        rawOrEmptyObject(item.RawJSON),
			ExpectedExtracted: rawOrEmptyObject(item.CorrectedJSON),
		}
		data, err := json.MarshalIndent(fixture, "", "  ")
		if err != nil {
			return written, fmt.Errorf("marshal fixture %s: %w", item.ElementID, err)
		}

		path := filepath.Join(dir, item.ElementID+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("write fixture %s: %w", item.ElementID, err)
		}
		written++
	}

	return written, nil
}

// LoadFixture reads a fixture file written by ExportFixtures.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

func rawOrEmptyObject(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}
