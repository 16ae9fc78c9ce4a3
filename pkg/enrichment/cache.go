// Package enrichment resolves per-item details lazily. Each identifier is
// fetched at most once; concurrent requests for the same identifier share
// the single in-flight lookup.
package enrichment

import (
	"context"
	"sync"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var (
	inFlightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_enrichment_inflight",
		Help: "Detail lookups currently in flight",
	})

	resolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_enrichment_resolved_total",
		Help: "Detail lookups resolved by outcome",
	}, []string{"outcome"}) // "found", "empty"

	dedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_enrichment_deduplicated_total",
		Help: "Ensure requests skipped because the identifier was pending or resolved",
	})
)

// DetailFetcher looks up one identifier. Implementations must not fail:
// problems are reported as catalog.EmptyDetail.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, identifier string) catalog.Detail
}

var _ DetailFetcher = (*catalog.Client)(nil)

// Status of an identifier in the cache.
type Status int

const (
	// StatusUnknown means the identifier was never requested.
	StatusUnknown Status = iota
	// StatusPending means a lookup is in flight.
	StatusPending
	// StatusResolved means the detail is available.
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

type entry struct {
	status Status
	detail catalog.Detail
}

// Cache maps identifiers to their enrichment state.
type Cache struct {
	fetcher    DetailFetcher
	logger     zerolog.Logger
	sem        *semaphore.Weighted
	onResolved func(identifier string)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	idle    *sync.Cond
	entries map[string]*entry
	pending int
	closed  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxConcurrency bounds the number of simultaneous lookups. n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithOnResolved registers a callback invoked after each identifier resolves.
// It runs on the lookup goroutine.
func WithOnResolved(fn func(identifier string)) Option {
	return func(c *Cache) {
		c.onResolved = fn
	}
}

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an empty cache. Lookups run under a context owned by the
// cache and cancelled by Close.
func New(fetcher DetailFetcher, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		fetcher: fetcher,
		logger:  log.With().Str("component", "enrichment").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure starts a lookup for every identifier not yet known. Identifiers
// that are pending or resolved are skipped. It never blocks on lookups.
func (c *Cache) Ensure(identifiers ...string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	var launch []string
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		if _, ok := c.entries[id]; ok {
			dedupedTotal.Inc()
			continue
		}
		c.entries[id] = &entry{status: StatusPending}
		launch = append(launch, id)
	}
	c.pending += len(launch)
	c.mu.Unlock()

	for _, id := range launch {
		go c.lookup(id)
	}

	if len(launch) > 0 {
		c.logger.Debug().Int("launched", len(launch)).Int("requested", len(identifiers)).Msg("Enrichment batch started")
	}
}

func (c *Cache) lookup(id string) {
	defer c.done()

	if c.sem != nil {
		if err := c.sem.Acquire(c.ctx, 1); err != nil {
			c.resolve(id, catalog.EmptyDetail(id))
			return
		}
		defer c.sem.Release(1)
	}

	inFlightGauge.Inc()
	detail := c.fetch(id)
	inFlightGauge.Dec()

	c.resolve(id, detail)
}

func (c *Cache) done() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		c.idle.Broadcast()
	}
	c.mu.Unlock()
}

// fetch calls the fetcher, turning a panic into the empty sentinel.
func (c *Cache) fetch(id string) (detail catalog.Detail) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("identifier", id).
				Interface("panic", r).
				Msg("Detail fetcher panicked, using empty result")
			detail = catalog.EmptyDetail(id)
		}
	}()
	return c.fetcher.FetchDetail(c.ctx, id)
}

// resolve moves id from pending to resolved. Results for unknown identifiers
// are dropped; a repeated result for a resolved identifier is ignored.
func (c *Cache) resolve(id string, detail catalog.Detail) {
	detail.Identifier = id

	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug().Str("identifier", id).Msg("Dropping result for unknown identifier")
		return
	}
	if e.status == StatusResolved {
		c.mu.Unlock()
		return
	}
	e.status = StatusResolved
	e.detail = detail
	c.mu.Unlock()

	outcome := "found"
	if detail.IsEmpty() {
		outcome = "empty"
	}
	resolvedTotal.WithLabelValues(outcome).Inc()

	if c.onResolved != nil {
		c.onResolved(id)
	}
}

// Result returns the resolved detail. The boolean is false while the
// identifier is unknown or pending.
func (c *Cache) Result(identifier string) (catalog.Detail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[identifier]
	if !ok || e.status != StatusResolved {
		return catalog.Detail{}, false
	}
	return e.detail, true
}

// Status returns the state of identifier.
func (c *Cache) Status(identifier string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[identifier]; ok {
		return e.status
	}
	return StatusUnknown
}

// Len returns the number of known identifiers, pending or resolved.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Wait blocks until every lookup started so far has resolved.
func (c *Cache) Wait() {
	c.mu.Lock()
	for c.pending > 0 {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Close cancels outstanding lookups, waits for them and rejects further work.
// Lookups interrupted by Close resolve to the empty sentinel.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.Wait()
}
