package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_pages_fetched_total",
		Help: "Total number of catalog pages committed to the pagination cache",
	})

	pageFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_page_fetch_failures_total",
		Help: "Total number of failed catalog page fetches",
	})

	duplicatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_duplicate_records_dropped_total",
		Help: "Records dropped because their name was already accumulated",
	})

	recordsAccumulated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_records_accumulated",
		Help: "Number of records held by the most recently updated pagination cache",
	})
)

// ErrPageFetch is matched by every error returned from FetchNextPage.
var ErrPageFetch = errors.New("page fetch failed")

// FetchError reports a failed page fetch. The cursor was not advanced.
type FetchError struct {
	Cursor int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (cursor %d): %v", ErrPageFetch, e.Cursor, e.Err)
}

// Unwrap exposes both ErrPageFetch and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrPageFetch, e.Err}
}

// PageFetcher fetches a single page by zero-based cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor int) (catalog.Page, error)
}

var _ PageFetcher = (*catalog.Client)(nil)

// Cache owns the accumulated records, the cursor and the end-of-data flag.
type Cache struct {
	fetcher PageFetcher
	logger  zerolog.Logger

	mu       sync.RWMutex
	records  []catalog.Summary
	seen     map[string]struct{}
	cursor   int
	hasMore  bool
	inFlight bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an empty cache positioned at cursor 0.
func New(fetcher PageFetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		logger:  log.With().Str("component", "pagination").Logger(),
		seen:    make(map[string]struct{}),
		hasMore: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchNextPage fetches the page at the current cursor and merges it.
// It returns nil without issuing a request when a fetch is already in flight
// or the last page has been seen. On failure the cursor and end-of-data flag
// are left untouched and a *FetchError is returned.
func (c *Cache) FetchNextPage(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	cursor := c.cursor
	c.mu.Unlock()

	start := time.Now()
	page, err := c.fetcher.FetchPage(ctx, cursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		pageFailuresTotal.Inc()
		c.logger.Warn().
			Err(err).
			Int("cursor", cursor).
			Dur("duration", time.Since(start)).
			Msg("Page fetch failed")
		return &FetchError{Cursor: cursor, Err: err}
	}

	added := c.merge(page.Records)
	c.cursor = cursor + 1
	c.hasMore = page.HasMore

	pagesFetchedTotal.Inc()
	recordsAccumulated.Set(float64(len(c.records)))

	c.logger.Debug().
		Int("cursor", cursor).
		Int("received", len(page.Records)).
		Int("added", added).
		Int("total", len(c.records)).
		Bool("has_more", c.hasMore).
		Dur("duration", time.Since(start)).
		Msg("Page committed")

	return nil
}

// merge appends records whose name has not been seen. Caller holds mu.
func (c *Cache) merge(records []catalog.Summary) int {
	added := 0
	for _, r := range records {
		if _, dup := c.seen[r.Name]; dup {
			duplicatesDroppedTotal.Inc()
			continue
		}
		c.seen[r.Name] = struct{}{}
		c.records = append(c.records, r)
		added++
	}
	return added
}

// Accumulated returns the committed records in first-seen order.
// The returned slice is a snapshot and must not be modified.
func (c *Cache) Accumulated() []catalog.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.records)
	return c.records[:n:n]
}

// Len returns the number of accumulated records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// HasMore reports whether another page may exist.
func (c *Cache) HasMore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasMore
}

// Cursor returns the index of the next page to fetch.
func (c *Cache) Cursor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// InFlight reports whether a page fetch is currently running.
func (c *Cache) InFlight() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight
}
