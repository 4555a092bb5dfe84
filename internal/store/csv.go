package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// CSVStore appends activity records to the activity CSV with
// deduplication by activity_urn, so re-running an extraction over the
// same changelog window is idempotent.
type CSVStore struct {
	path   string
	logger *logrus.Logger
}

// NewCSVStore creates a store writing to the given CSV path
func NewCSVStore(path string) *CSVStore {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &CSVStore{path: path, logger: logger}
}

// Append writes records whose activity_urn is not present yet.
// Returns the number of rows actually added.
func (s *CSVStore) Append(records []ActivityRecord) (int, error) {
	seen, err := s.existingURNs()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	writeHeader := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open activity csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return 0, fmt.Errorf("write csv header: %w", err)
		}
	}

	added := 0
	for _, rec := range records {
		if seen[rec.ActivityURN] {
			continue
		}
		seen[rec.ActivityURN] = true

		if err := w.Write(rec.row()); err != nil {
			return added, fmt.Errorf("write csv row: %w", err)
		}
		added++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return added, fmt.Errorf("flush activity csv: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    s.path,
		"added":   added,
		"skipped": len(records) - added,
	}).Info("Appended activity records")

	return added, nil
}

// Load reads all activity records from the CSV
func (s *CSVStore) Load() ([]ActivityRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open activity csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read activity csv: %w", err)
	}

	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]ActivityRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			continue
		}
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

// existingURNs collects the activity_urn column of the current file
func (s *CSVStore) existingURNs() (map[string]bool, error) {
	seen := make(map[string]bool)

	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		seen[rec.ActivityURN] = true
	}
	return seen, nil
}

func (r ActivityRecord) row() []string {
	return []string{
		r.Owner,
		r.ActivityType,
		strconv.FormatInt(r.Time, 10),
		r.ReactionType,
		r.AuthorURN,
		r.ActivityURN,
		r.PostURL,
		r.Content,
		r.ParentURN,
		r.OriginalPostURN,
		r.CreatedAt,
	}
}

func recordFromRow(row []string) ActivityRecord {
	ts, _ := strconv.ParseInt(row[2], 10, 64)
	return ActivityRecord{
		Owner:           row[0],
		ActivityType:    row[1],
		Time:            ts,
		ReactionType:    row[3],
		AuthorURN:       row[4],
		ActivityURN:     row[5],
		PostURL:         row[6],
		Content:         row[7],
		ParentURN:       row[8],
		OriginalPostURN: row[9],
		CreatedAt:       row[10],
	}
}
