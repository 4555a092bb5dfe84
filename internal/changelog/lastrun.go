package changelog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultStartTime is the epoch-ms floor for last-run timestamps.
// Member Data Portability changelogs don't reach back further, so a
// stale or corrupt .last_run never triggers a useless deep backfill.
const DefaultStartTime int64 = 1764716400000

const lastRunFile = ".last_run"

// LoadLastRun reads the persisted last-run timestamp from the data dir.
// The value is clamped to [DefaultStartTime, now+30d]; a missing or
// unparseable file yields DefaultStartTime.
func LoadLastRun(dataDir string) int64 {
	data, err := os.ReadFile(filepath.Join(dataDir, lastRunFile))
	if err != nil {
		return DefaultStartTime
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return DefaultStartTime
	}

	return clampLastRun(ts, time.Now())
}

// SaveLastRun persists the last-run timestamp to the data dir
func SaveLastRun(dataDir string, ts int64) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(
		filepath.Join(dataDir, lastRunFile),
		[]byte(strconv.FormatInt(ts, 10)),
		0644,
	)
}

// clampLastRun bounds a timestamp to the valid changelog window
func clampLastRun(ts int64, now time.Time) int64 {
	if ts < DefaultStartTime {
		return DefaultStartTime
	}
	ceiling := now.Add(30 * 24 * time.Hour).UnixMilli()
	if ts > ceiling {
		return ceiling
	}
	return ts
}
