// Package browser wires the pagination cache, the enrichment cache, the
// filtered view and the favorites/search store into one browsing session.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/enrichment"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/Sternrassler/catalog-client/pkg/projection"
	"github.com/Sternrassler/catalog-client/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var searchAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "catalog_session_search_applied_total",
	Help: "Debounced search terms applied to the session store",
})

var (
	// ErrNotReady is returned by LoadMore before the first page has loaded.
	ErrNotReady = errors.New("session not ready")

	// ErrStarting is returned by Start while another Start is loading the first page.
	ErrStarting = errors.New("session start already in progress")
)

// Status is the user-visible load state of a session.
type Status int

const (
	// StatusLoading until the first page has been attempted.
	StatusLoading Status = iota
	// StatusReady once the first page is committed.
	StatusReady
	// StatusFailed when the first page could not be loaded.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Config tunes a Session.
type Config struct {
	// SearchDebounce is the quiescence window for TypeSearch.
	SearchDebounce time.Duration

	// Mode selects substring or fuzzy filtering.
	Mode projection.Mode

	// MaxConcurrency bounds simultaneous detail lookups (0 = unbounded).
	MaxConcurrency int

	// OnDetail is called after each identifier resolves, on the lookup goroutine.
	OnDetail func(identifier string)
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		SearchDebounce: state.DefaultSearchDebounce,
		Mode:           projection.ModeSubstring,
	}
}

// Session is one browsing session over the catalog.
type Session struct {
	pages   *pagination.Cache
	details *enrichment.Cache
	store   *state.Store
	search  *state.Debouncer[string]
	mode    projection.Mode
	logger  zerolog.Logger

	mu       sync.RWMutex
	status   Status
	lastErr  error
	starting bool

	closeOnce sync.Once
}

// New builds a session. A nil store gets a fresh one.
func New(pages pagination.PageFetcher, details enrichment.DetailFetcher, store *state.Store, cfg Config) *Session {
	if store == nil {
		store = state.NewStore()
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = state.DefaultSearchDebounce
	}
	if cfg.Mode == "" {
		cfg.Mode = projection.ModeSubstring
	}

	logger := logging.NewLogger("browser")

	enrichOpts := []enrichment.Option{
		enrichment.WithMaxConcurrency(cfg.MaxConcurrency),
		enrichment.WithLogger(logging.NewLogger("enrichment")),
	}
	if cfg.OnDetail != nil {
		enrichOpts = append(enrichOpts, enrichment.WithOnResolved(cfg.OnDetail))
	}

	s := &Session{
		pages:   pagination.New(pages, pagination.WithLogger(logging.NewLogger("pagination"))),
		details: enrichment.New(details, enrichOpts...),
		store:   store,
		mode:    cfg.Mode,
		logger:  logger,
	}
	s.search = state.NewDebouncer(cfg.SearchDebounce, func(term string) {
		searchAppliedTotal.Inc()
		s.logger.Debug().Str("term", term).Msg("Search applied")
		s.store.SetSearch(term)
	})
	return s
}

// Start loads the first page. A failure leaves the session in StatusFailed.
// Start on a ready session does nothing; a concurrent Start returns ErrStarting.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.starting:
		s.mu.Unlock()
		return ErrStarting
	case s.status == StatusReady:
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.status = StatusLoading
	s.lastErr = nil
	s.mu.Unlock()

	err := s.pages.FetchNextPage(ctx)
	if err == nil && s.pages.Cursor() == 0 {
		// the pagination cache skipped the request
		err = ErrStarting
	}

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.status = StatusFailed
		s.lastErr = err
	} else {
		s.status = StatusReady
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("First page could not be loaded")
		return err
	}
	s.logger.Info().Int("records", s.pages.Len()).Bool("has_more", s.pages.HasMore()).Msg("First page loaded")
	return nil
}

// Retry repeats Start after a failed first load. It is a no-op otherwise.
func (s *Session) Retry(ctx context.Context) error {
	if s.Status() != StatusFailed {
		return nil
	}
	return s.Start(ctx)
}

// LoadMore fetches the next page once the view has reached its end. Failures
// are returned to the caller and leave the status unchanged.
func (s *Session) LoadMore(ctx context.Context) error {
	if s.Status() != StatusReady {
		return ErrNotReady
	}
	if !s.pages.HasMore() {
		return nil
	}
	return s.pages.FetchNextPage(ctx)
}

// Status returns the load state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error behind StatusFailed, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// HasMore reports whether another page may exist.
func (s *Session) HasMore() bool {
	return s.pages.HasMore()
}

// Accumulated returns every record loaded so far.
func (s *Session) Accumulated() []catalog.Summary {
	return s.pages.Accumulated()
}

// Visible returns the accumulated records filtered by the current search term.
func (s *Session) Visible() []catalog.Summary {
	return projection.ProjectWith(s.mode, s.pages.Accumulated(), s.store.SearchTerm())
}

// EnrichVisible starts detail lookups for every visible record not yet known.
func (s *Session) EnrichVisible() {
	visible := s.Visible()
	ids := make([]string, 0, len(visible))
	for _, r := range visible {
		ids = append(ids, catalog.Identifier(r))
	}
	s.details.Ensure(ids...)
}

// Detail returns the resolved detail for a record. The boolean is false
// while the lookup is unknown or pending.
func (s *Session) Detail(record catalog.Summary) (catalog.Detail, bool) {
	return s.details.Result(catalog.Identifier(record))
}

// WaitDetails blocks until every started detail lookup has resolved.
func (s *Session) WaitDetails() {
	s.details.Wait()
}

// TypeSearch records raw search input. The store sees only the last value
// typed within the debounce window.
func (s *Session) TypeSearch(text string) {
	s.search.Schedule(text)
}

// ToggleFavorite flips a favorite and returns the new membership.
func (s *Session) ToggleFavorite(name string) bool {
	return s.store.ToggleFavorite(name)
}

// IsFavorite reports whether name is a favorite.
func (s *Session) IsFavorite(name string) bool {
	return s.store.IsFavorite(name)
}

// Store returns the shared search/favorites store.
func (s *Session) Store() *state.Store {
	return s.store
}

// Close cancels pending search input and outstanding detail lookups.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.search.Close()
		s.details.Close()
		s.logger.Info().Msg("Session closed")
	})
}
