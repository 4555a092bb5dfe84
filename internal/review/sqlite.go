package review

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// itemColumns is the select list shared by both backends. COALESCE keeps
// NULLs from databases written by earlier tool versions out of the scan.
const itemColumns = `element_id,
	COALESCE(processed_at, 0) AS processed_at,
	COALESCE(resource_name, '') AS resource_name,
	COALESCE(method_name, '') AS method_name,
	COALESCE(raw_json, '') AS raw_json,
	COALESCE(extracted_json, '') AS extracted_json,
	status,
	COALESCE(notes, '') AS notes,
	COALESCE(corrected_json, '') AS corrected_json,
	COALESCE(updated_at, 0) AS updated_at`

// SQLiteStore implements Store on a local SQLite file (the default
// backend for single-user review)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens the review database at path, creating the file and
// its directory if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create review directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init review schema: %w", err)
	}

	logger.WithField("path", path).Info("Review store opened")
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_items (
		element_id TEXT PRIMARY KEY,
		processed_at INTEGER,
		resource_name TEXT,
		method_name TEXT,
		raw_json TEXT,
		extracted_json TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		corrected_json TEXT,
		updated_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertExtraction(ctx context.Context, item Item) (bool, error) {
	var existing string
	err := s.db.GetContext(ctx, &existing,
		"SELECT element_id FROM review_items WHERE element_id = ?", item.ElementID)
	now := time.Now().Unix()

	if err == sql.ErrNoRows {
		status := item.Status
		if status == "" {
			status = StatusPending
		}
		query := `
			INSERT INTO review_items
			(element_id, processed_at, resource_name, method_name, raw_json, extracted_json, status, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = s.db.ExecContext(ctx, query,
			item.ElementID, item.ProcessedAt, item.ResourceName, item.MethodName,
			item.RawJSON, item.ExtractedJSON, status, now)
		if err != nil {
			return false, fmt.Errorf("insert review item: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check review item: %w", err)
	}

	query := `
		UPDATE review_items
		SET raw_json = ?, extracted_json = ?, processed_at = ?, updated_at = ?
		WHERE element_id = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		item.RawJSON, item.ExtractedJSON, item.ProcessedAt, now, item.ElementID)
	if err != nil {
		return false, fmt.Errorf("update review item: %w", err)
	}
	return false, nil
}

func (s *SQLiteStore) WorkQueue(ctx context.Context) ([]Item, error) {
	query, args, err := sqlx.In(`
		SELECT `+itemColumns+`
		FROM review_items
		WHERE status IN (?)
		ORDER BY processed_at ASC NULLS LAST, element_id`, WorkQueueStatuses)
	if err != nil {
		return nil, fmt.Errorf("build work queue query: %w", err)
	}

	var items []Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("load work queue: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) Get(ctx context.Context, elementID string) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE element_id = ?`

	err := s.db.GetContext(ctx, &item, query, elementID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return &item, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, elementID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid review status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE review_items SET status = ?, updated_at = ? WHERE element_id = ?",
		status, time.Now().Unix(), elementID)
	if err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateCorrection(ctx context.Context, elementID string, upd CorrectionUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().Unix()}

	if upd.CorrectedJSON != nil {
		sets = append(sets, "corrected_json = ?")
		args = append(args, *upd.CorrectedJSON)
	}
	if upd.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *upd.Notes)
	}
	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return fmt.Errorf("invalid review status %q", *upd.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	args = append(args, elementID)

	query := "UPDATE review_items SET " + strings.Join(sets, ", ") + " WHERE element_id = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review correction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountsByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS n FROM review_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count review items: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func (s *SQLiteStore) FixtureItems(ctx context.Context) ([]Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE corrected_json IS NOT NULL AND corrected_json != ''
		ORDER BY element_id
	`

	var items []Item
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("load fixture items: %w", err)
	}
	return items, nil
}
