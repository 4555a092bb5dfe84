package review

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements Store on PostgreSQL, for review state shared
// across machines.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init review schema: %w", err)
	}

	logger.Info("Review store connected to postgres")
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_items (
		element_id TEXT PRIMARY KEY,
		processed_at BIGINT,
		resource_name TEXT,
		method_name TEXT,
		raw_json TEXT,
		extracted_json TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		corrected_json TEXT,
		updated_at BIGINT
	);

	CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertExtraction(ctx context.Context, item Item) (bool, error) {
	var existing string
	err := s.db.GetContext(ctx, &existing,
		"SELECT element_id FROM review_items WHERE element_id = $1", item.ElementID)
	now := time.Now().Unix()

	if err == sql.ErrNoRows {
		status := item.Status
		if status == "" {
			status = StatusPending
		}
		query := `
			INSERT INTO review_items
			(element_id, processed_at, resource_name, method_name, raw_json, extracted_json, status, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
		SET raw_json = $1, extracted_json = $2, processed_at = $3, updated_at = $4
		WHERE element_id = $5
	`
	_, err = s.db.ExecContext(ctx, query,
		item.RawJSON, item.ExtractedJSON, item.ProcessedAt, now, item.ElementID)
	if err != nil {
		return false, fmt.Errorf("update review item: %w", err)
	}
	return false, nil
}

func (s *PostgresStore) WorkQueue(ctx context.Context) ([]Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE status = ANY($1)
		ORDER BY processed_at ASC NULLS LAST, element_id
	`

	var items []Item
	if err := s.db.SelectContext(ctx, &items, query, pq.Array(WorkQueueStatuses)); err != nil {
		return nil, fmt.Errorf("load work queue: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Get(ctx context.Context, elementID string) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE element_id = $1`

	err := s.db.GetContext(ctx, &item, query, elementID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, elementID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid review status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE review_items SET status = $1, updated_at = $2 WHERE element_id = $3",
		status, time.Now().Unix(), elementID)
	if err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateCorrection(ctx context.Context, elementID string, upd CorrectionUpdate) error {
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

	// Rebind converts the ? placeholders to $n for postgres.
	query := s.db.Rebind("UPDATE review_items SET " + strings.Join(sets, ", ") + " WHERE element_id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review correction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountsByStatus(ctx context.Context) (map[string]int, error) {
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

func (s *PostgresStore) FixtureItems(ctx context.Context) ([]Item, error) {
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
