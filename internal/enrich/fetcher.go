package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/amai-lab/linkgraph/internal/config"
)

const pagesBucket = "pages"

// maxPageBytes bounds how much of a page is read. LinkedIn post pages
// run to a few hundred KB of markup; anything past this is script noise.
const maxPageBytes = 4 << 20

// HTTPError is a non-200 response from a page fetch
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Fetcher retrieves pages for enrichment through two cache layers: an
// in-memory TTL cache for the current run and an on-disk bucket so
// repeated runs never refetch a page. Real fetches are spaced out and
// retried on transient failures.
type Fetcher struct {
	http   *http.Client
	mem    *gocache.Cache
	pages  *bolt.DB
	ua     string
	wait   time.Duration
	logger *logrus.Logger

	mu        sync.Mutex
	lastFetch time.Time
}

// NewFetcher opens the page cache and builds the HTTP client
func NewFetcher(cfg config.EnrichConfig) (*Fetcher, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.PageCachePath), 0755); err != nil {
		return nil, fmt.Errorf("create page cache directory: %w", err)
	}

	db, err := bolt.Open(cfg.PageCachePath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pagesBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create page cache bucket: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.WithField("path", cfg.PageCachePath).Debug("Page cache opened")

	return &Fetcher{
		http:   &http.Client{Timeout: cfg.Timeout},
		mem:    gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		pages:  db,
		ua:     cfg.UserAgent,
		wait:   cfg.Wait,
		logger: logger,
	}, nil
}

// Close closes the on-disk page cache
func (f *Fetcher) Close() error {
	return f.pages.Close()
}

// FetchPage returns the page body for a URL, from cache when possible
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	key := pageKey(rawURL)

	if cached, found := f.mem.Get(key); found {
		return cached.([]byte), nil
	}

	var stored []byte
	_ = f.pages.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket([]byte(pagesBucket)).Get([]byte(key)); data != nil {
			stored = append([]byte(nil), data...)
		}
		return nil
	})
	if stored != nil {
		f.mem.Set(key, stored, gocache.DefaultExpiration)
		f.logger.WithField("url", rawURL).Debug("Page cache hit")
		return stored, nil
	}

	f.pause()
	body, err := f.doFetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	f.mem.Set(key, body, gocache.DefaultExpiration)
	if err := f.pages.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(pagesBucket)).Put([]byte(key), body)
	}); err != nil {
		f.logger.WithError(err).WithField("url", rawURL).Warn("Failed to store page in cache")
	}
	return body, nil
}

// pause keeps at least the configured wait between real fetches
func (f *Fetcher) pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.lastFetch.IsZero() {
		if elapsed := time.Since(f.lastFetch); elapsed < f.wait {
			time.Sleep(f.wait - elapsed)
		}
	}
	f.lastFetch = time.Now()
}

func (f *Fetcher) doFetch(ctx context.Context, rawURL string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", f.ua)
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

			resp, err := f.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
			}
			return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxJitter(250*time.Millisecond),
		retry.RetryIf(isRetryableFetch),
		retry.OnRetry(func(n uint, err error) {
			f.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": n + 1,
				"url":     rawURL,
			}).Debug("Retrying page fetch")
		}),
	)
}

// isRetryableFetch reports whether a fetch failure is transient.
// Non-429 4xx responses are permanent.
func isRetryableFetch(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}

func pageKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}
