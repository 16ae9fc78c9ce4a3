// Package metrics exposes the Prometheus registry used by the catalog client
// and an HTTP endpoint that serves it. The metrics themselves are declared
// with promauto next to the code that updates them (client, cache,
// pagination, enrichment, browser).
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the registerer promauto writes to.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Metrics reference
//
// HTTP transport (pkg/client):
//   - catalog_http_requests_total{route, status} (Counter)
//   - catalog_http_request_duration_seconds{route} (Histogram)
//   - catalog_http_errors_total{class} (Counter): client, server, rate_limit, network, circuit_open
//   - catalog_http_retries_total{error_class} (Counter)
//   - catalog_http_retry_backoff_seconds{error_class} (Histogram)
//   - catalog_http_retry_exhausted_total{error_class} (Counter)
//   - catalog_http_breaker_transitions_total{name, to} (Counter)
//
// Response cache (pkg/cache):
//   - catalog_cache_hits_total{layer="redis"} (Counter)
//   - catalog_cache_misses_total (Counter)
//   - catalog_cache_errors_total{operation} (Counter)
//
// Pagination (pkg/pagination):
//   - catalog_pages_fetched_total (Counter)
//   - catalog_page_fetch_failures_total (Counter)
//   - catalog_duplicate_records_dropped_total (Counter)
//   - catalog_records_accumulated (Gauge)
//
// Enrichment (pkg/enrichment):
//   - catalog_enrichment_inflight (Gauge)
//   - catalog_enrichment_resolved_total{outcome} (Counter): found, empty
//   - catalog_enrichment_deduplicated_total (Counter)
//
// Session (pkg/browser):
//   - catalog_session_search_applied_total (Counter)
//
// Example queries:
//
//   # Share of detail lookups that fell back to the empty result
//   rate(catalog_enrichment_resolved_total{outcome="empty"}[5m]) /
//   rate(catalog_enrichment_resolved_total[5m])
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(catalog_http_request_duration_seconds_bucket{route="page"}[5m]))
