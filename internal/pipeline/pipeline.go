package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/amai-lab/linkgraph/internal/urn"
)

// minStoreContentLen filters boilerplate fragments out of the content
// store; anything shorter cannot carry a summarizable post
const minStoreContentLen = 50

// Options configure one pipeline run
type Options struct {
	Window         string   // period like 7d, 14d, 30d; default 30d
	Types          []string // interaction types; nil means all
	Limit          int      // caps page fetches and summarized posts; 0 = no cap
	SkipEnrich     bool     // leave empty content empty
	BatchSize      int      // posts per LLM call
	ActivitiesPath string   // collected-activities JSON; empty skips the write
	EnrichedPath   string   // enriched-activities JSON; empty skips the write
}

// Result reports what one run did
type Result struct {
	RunID      string
	Collected  int
	Enriched   int
	Stored     int
	Summarized int
}

// Pipeline runs collect, enrich and summarize over an extraction cache.
// Deliberately sequential: every phase feeds the next and LinkedIn page
// fetches are rate-limited anyway.
type Pipeline struct {
	store   *store.ContentStore
	fetcher *enrich.Fetcher
	llm     *llm.Client
	runID   string
	logger  *slog.Logger
}

// New creates a pipeline; a nil fetcher disables the enrichment phase
func New(contentStore *store.ContentStore, fetcher *enrich.Fetcher, llmClient *llm.Client) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		store:   contentStore,
		fetcher: fetcher,
		llm:     llmClient,
		runID:   runID,
		logger:  slog.Default().With("component", "pipeline", "run_id", runID),
	}
}

// RunID identifies this pipeline instance in logs and sidecars
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes the three phases against extraction data. Summarization
// covers the whole store backlog, so an empty window still backfills
// posts collected earlier.
func (p *Pipeline) Run(ctx context.Context, data *graph.CacheData, opts Options) (*Result, error) {
	window := opts.Window
	if window == "" {
		window = "30d"
	}
	startMS, err := ParseWindow(window)
	if err != nil {
		return nil, err
	}
	endMS := time.Now().UTC().UnixMilli()

	result := &Result{RunID: p.runID}

	records := CollectActivities(data, CollectOptions{
		Types:   opts.Types,
		StartMS: startMS,
		EndMS:   endMS,
	})
	result.Collected = len(records)
	p.logger.Info("collected activities", "window", window, "count", len(records))
	if len(records) == 0 && len(data.Relationships) > 0 {
		p.logger.Warn("no activities in window; is the cache older than the period?")
	}
	if err := writeJSON(opts.ActivitiesPath, records); err != nil {
		return nil, err
	}

	if opts.SkipEnrich || p.fetcher == nil {
		p.logger.Info("skipping enrichment phase")
	} else {
		result.Enriched = p.enrichRecords(ctx, records, opts.Limit)
		p.logger.Info("enriched activities", "count", result.Enriched)
	}
	result.Stored = p.storeRecords(records)
	if err := writeJSON(opts.EnrichedPath, records); err != nil {
		return nil, err
	}

	summarizer := NewSummarizer(p.store, p.llm, opts.BatchSize, p.runID)
	result.Summarized, err = summarizer.SummarizeAll(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline done",
		"collected", result.Collected,
		"enriched", result.Enriched,
		"stored", result.Stored,
		"summarized", result.Summarized)
	return result, nil
}

// enrichRecords fills empty content, trying the content store before
// the network. limit caps page fetches, not store hits.
func (p *Pipeline) enrichRecords(ctx context.Context, records []Activity, limit int) int {
	filled := 0
	fetched := 0
	for i := range records {
		r := &records[i]
		if r.Content != "" {
			continue
		}

		if content, err := p.store.Load(r.PostURN); err == nil && content != "" {
			r.Content = content
			filled++
		} else {
			if limit > 0 && fetched >= limit {
				continue
			}
			pageURL := r.PostURL
			if pageURL == "" {
				pageURL = urn.ToPostURL(r.PostURN)
			}
			if enrich.IsCommentFeedURL(pageURL) {
				continue
			}
			fetched++
			content, urls, err := enrich.FetchPostContent(ctx, p.fetcher, pageURL)
			if err != nil {
				p.logger.Warn("page fetch failed", "url", pageURL, "error", err)
				continue
			}
			if content == "" {
				continue
			}
			r.Content = content
			if len(r.URLs) == 0 {
				r.URLs = urls
			}
			filled++
		}

		if len(r.URLs) == 0 {
			r.URLs = enrich.ExtractURLs(r.Content)
		}
	}
	return filled
}

// storeRecords persists substantial content with a metadata sidecar,
// one entry per post. Summary fields on existing sidecars survive.
func (p *Pipeline) storeRecords(records []Activity) int {
	saved := map[string]bool{}
	stored := 0
	for _, r := range records {
		if r.PostURN == "" || saved[r.PostURN] {
			continue
		}
		if len([]rune(r.Content)) < minStoreContentLen {
			continue
		}
		saved[r.PostURN] = true

		if err := p.store.Save(r.PostURN, r.Content); err != nil {
			p.logger.Warn("storing content failed", "urn", r.PostURN, "error", err)
			continue
		}
		meta, err := p.store.LoadMeta(r.PostURN)
		if err != nil {
			p.logger.Warn("loading sidecar failed", "urn", r.PostURN, "error", err)
			continue
		}
		meta.PostURL = r.PostURL
		meta.URLs = r.URLs
		meta.InteractionType = r.InteractionType
		meta.Timestamp = r.Timestamp
		if err := p.store.SaveMeta(meta); err != nil {
			p.logger.Warn("saving sidecar failed", "urn", r.PostURN, "error", err)
			continue
		}
		stored++
	}
	return stored
}

// SeedFromJSON loads an activities JSON file (a bare array or
// {"activities": [...]}) into the content store for history backfill.
// Returns how many posts were stored.
func SeedFromJSON(contentStore *store.ContentStore, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var records []Activity
	if err := json.Unmarshal(raw, &records); err != nil {
		var wrapper struct {
			Activities []Activity `json:"activities"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return 0, fmt.Errorf("decode seed file %s: %w", path, err)
		}
		records = wrapper.Activities
	}

	seen := map[string]bool{}
	count := 0
	for _, r := range records {
		if r.PostURN == "" || seen[r.PostURN] {
			continue
		}
		if len([]rune(r.Content)) < minStoreContentLen {
			continue
		}
		seen[r.PostURN] = true

		if err := contentStore.Save(r.PostURN, r.Content); err != nil {
			return count, err
		}
		meta, err := contentStore.LoadMeta(r.PostURN)
		if err != nil {
			return count, err
		}
		meta.PostURL = r.PostURL
		meta.URLs = r.URLs
		if err := contentStore.SaveMeta(meta); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func writeJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
