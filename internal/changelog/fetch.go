package changelog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Options controls a changelog fetch run
type Options struct {
	// StartTime filters elements to processedAt >= StartTime (epoch ms).
	// Zero fetches from the beginning of the retention window.
	StartTime int64

	// Resources filters elements whose resourceName contains any of
	// these substrings (case-insensitive). Empty keeps everything.
	Resources []string

	// MaxElements stops the fetch once this many elements pass the
	// filters. Zero means unlimited.
	MaxElements int

	// PageSize is the page size for the changelog endpoint (max 50)
	PageSize int
}

// FetchStats tracks fetch statistics
type FetchStats struct {
	Pages    int
	Fetched  int
	Kept     int
	Filtered int
}

// Fetcher pages through the member changelog and applies client-side filters
type Fetcher struct {
	client *Client
}

// NewFetcher creates a fetcher on top of a changelog client
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchAll pages through the changelog until the last page, the element
// cap, or an error. A network or HTTP error mid-run is returned together
// with the elements collected so far; callers keep the partial results.
func (f *Fetcher) FetchAll(ctx context.Context, opts Options) ([]Element, *FetchStats, error) {
	count := opts.PageSize
	if count <= 0 || count > 50 {
		count = 50
	}

	stats := &FetchStats{}
	var elements []Element

	log.Printf("🔍 Fetching member changelog (startTime=%d, pageSize=%d)...", opts.StartTime, count)

	start := 0
	for {
		page, err := f.client.FetchPage(ctx, start, count, opts.StartTime)
		if err != nil {
			// Partial results: return what we have, let the caller decide
			log.Printf("  ⚠️  Changelog fetch aborted at start=%d: %v", start, err)
			return elements, stats, fmt.Errorf("changelog fetch incomplete: %w", err)
		}

		stats.Pages++
		stats.Fetched += len(page.Elements)

		for _, el := range page.Elements {
			if !f.keep(el, opts) {
				stats.Filtered++
				continue
			}
			elements = append(elements, el)
			stats.Kept++

			if opts.MaxElements > 0 && len(elements) >= opts.MaxElements {
				log.Printf("  ✓ Reached element cap (%d), stopping", opts.MaxElements)
				return elements, stats, nil
			}
		}

		if !page.Paging.HasNext() {
			break
		}
		start += count
	}

	log.Printf("  ✓ Fetched %d elements across %d pages (%d filtered out)",
		stats.Kept, stats.Pages, stats.Filtered)
	return elements, stats, nil
}

// keep applies the client-side filters to one element
func (f *Fetcher) keep(el Element, opts Options) bool {
	// The server is supposed to honor startTime, but re-check here
	if opts.StartTime > 0 && el.ProcessedAt < opts.StartTime {
		return false
	}

	if len(opts.Resources) == 0 {
		return true
	}

	name := strings.ToLower(el.ResourceName)
	for _, want := range opts.Resources {
		if strings.Contains(name, strings.ToLower(want)) {
			return true
		}
	}
	return false
}
