// Package review persists extraction results for item-by-item human review.
//
// Every changelog element is synced into a review_items table together with
// the extraction delta it produces. A reviewer walks the work queue,
// validates or corrects each item, and corrected items can be exported as
// regression fixtures.
package review

import (
	"context"
	"errors"
)

// Review item statuses.
const (
	StatusPending        = "pending"
	StatusValidated      = "validated"
	StatusSkipped        = "skipped"
	StatusNeedsFix       = "needs_fix"
	StatusFixedValidated = "fixed_validated"
)

// WorkQueueStatuses selects the items still needing attention. Skipped
// stays in the queue so items can be revisited later.
var WorkQueueStatuses = []string{StatusPending, StatusNeedsFix, StatusSkipped}

var allStatuses = map[string]bool{
	StatusPending:        true,
	StatusValidated:      true,
	StatusSkipped:        true,
	StatusNeedsFix:       true,
	StatusFixedValidated: true,
}

// ValidStatus reports whether s is a known review status.
func ValidStatus(s string) bool {
	return allStatuses[s]
}

// Common errors
var (
	ErrNotFound = errors.New("review item not found")
)

// Item is one row of the review_items table. The JSON columns stay as
// serialized strings here; callers parse them when they need structure.
type Item struct {
	ElementID     string `db:"element_id" json:"element_id"`
	ProcessedAt   int64  `db:"processed_at" json:"processed_at"`
	ResourceName  string `db:"resource_name" json:"resource_name"`
	MethodName    string `db:"method_name" json:"method_name"`
	RawJSON       string `db:"raw_json" json:"raw_json"`
	ExtractedJSON string `db:"extracted_json" json:"extracted_json"`
	Status        string `db:"status" json:"status"`
	Notes         string `db:"notes" json:"notes"`
	CorrectedJSON string `db:"corrected_json" json:"corrected_json"`
	UpdatedAt     int64  `db:"updated_at" json:"updated_at"`
}

// CorrectionUpdate is a partial update of a review item. Nil fields are
// left untouched.
type CorrectionUpdate struct {
	CorrectedJSON *string
	Notes         *string
	Status        *string
}

// Store defines the review queue storage interface
type Store interface {
	// UpsertExtraction inserts a new item with status pending, or
	// refreshes raw_json/extracted_json/processed_at of an existing one.
	// Status, notes, and corrections are never overwritten here.
	UpsertExtraction(ctx context.Context, item Item) (created bool, err error)

	// WorkQueue returns pending, needs_fix, and skipped items ordered by
	// processed_at (oldest first).
	WorkQueue(ctx context.Context) ([]Item, error)

	// Get returns a single item, or ErrNotFound.
	Get(ctx context.Context, elementID string) (*Item, error)

	// SetStatus updates the status of an item.
	SetStatus(ctx context.Context, elementID, status string) error

	// UpdateCorrection applies a partial correction update to an item.
	UpdateCorrection(ctx context.Context, elementID string, upd CorrectionUpdate) error

	// CountsByStatus returns the number of items per status.
	CountsByStatus(ctx context.Context) (map[string]int, error)

	// FixtureItems returns items with a non-empty correction, the inputs
	// for fixture export.
	FixtureItems(ctx context.Context) ([]Item, error)

	// Close closes the underlying database.
	Close() error
}
