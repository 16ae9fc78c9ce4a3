// Package client provides the shared HTTP transport used to talk to the
// catalog API: JSON decoding, error classification, retries, circuit
// breaking, an optional Redis response cache and request metrics.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Prometheus metrics for catalog API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "Total catalog API requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog API, e.g. "https://pokeapi.co/api/v2".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP exchange.
	Timeout time.Duration

	// Retry policy applied to every request of this client.
	Retry RetryConfig

	// Breaker settings; ConsecutiveFailures == 0 disables it.
	Breaker BreakerConfig

	// Redis enables the response cache when non-nil.
	Redis *redis.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
		Breaker:   DefaultBreakerConfig("catalog"),
	}
}

// Request describes a GET against the catalog API.
type Request struct {
	// Route is a low-cardinality metrics label such as "page" or "detail".
	Route string
	// Path relative to the base URL.
	Path string
	// Query parameters.
	Query url.Values
}

// Client is the catalog API transport.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cache      *cache.Manager
	breaker    *gobreaker.CircuitBreaker
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalog API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	logger := log.With().Str("component", "catalog-http").Logger()

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: newBreaker(cfg.Breaker, logger),
		config:  cfg,
		logger:  logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// WithRetry returns a copy of the client that uses a different retry policy.
// The copy shares the HTTP client, breaker and cache with the original.
func (c *Client) WithRetry(retry RetryConfig) *Client {
	clone := *c
	clone.config.Retry = retry
	return &clone
}

// WithBreaker returns a copy of the client with its own circuit breaker, so
// failures on one route family do not open the breaker of another. The copy
// keeps the original's breaker settings under the given name.
func (c *Client) WithBreaker(name string) *Client {
	clone := *c
	clone.config.Breaker.Name = name
	clone.breaker = newBreaker(clone.config.Breaker, c.logger)
	return &clone
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, req Request, out any) error {
	body, err := c.Get(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, req.Path, err)
	}
	return nil
}

// Get performs a GET with caching, retries and circuit breaking and returns the body.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.Route).Observe(time.Since(startTime).Seconds())
	}()

	key := cache.Key{Path: req.Path, Query: req.Query}
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("route", req.Route).Str("key", key.String()).Msg("Cache hit")
			requestsTotal.WithLabelValues(req.Route, "cached").Inc()
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("route", req.Route).Msg("Cache get error")
		}
	}

	var body []byte
	var header http.Header
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		var reqErr error
		body, header, reqErr = c.exchange(ctx, req)
		return reqErr
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, header, time.Now())); err != nil {
			c.logger.Warn().Err(err).Str("route", req.Route).Msg("Failed to cache response")
		}
	}

	return body, nil
}

type response struct {
	body   []byte
	header http.Header
}

// exchange runs one HTTP round trip through the circuit breaker.
func (c *Client) exchange(ctx context.Context, req Request) ([]byte, http.Header, error) {
	if c.breaker == nil {
		resp, err := c.roundTrip(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		return resp.body, resp.header, nil
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		if isBreakerRejection(err) {
			errorsTotal.WithLabelValues(string(ErrorClassCircuitOpen)).Inc()
			requestsTotal.WithLabelValues(req.Route, "circuit_open").Inc()
			return nil, nil, &APIError{
				ErrorClass: ErrorClassCircuitOpen,
				Message:    "request rejected by circuit breaker",
				Err:        err,
			}
		}
		return nil, nil, err
	}

	resp := result.(*response)
	return resp.body, resp.header, nil
}

// roundTrip issues the HTTP request and classifies the outcome.
func (c *Client) roundTrip(ctx context.Context, req Request) (*response, error) {
	target := c.resolve(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("route", req.Route).
		Str("url", target).
		Msg("Executing catalog request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(req.Route, "network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	requestsTotal.WithLabelValues(req.Route, status).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

		c.logger.Warn().
			Str("route", req.Route).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Catalog request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return &response{body: body, header: resp.Header}, nil
}

// resolve joins the base URL, request path and query.
func (c *Client) resolve(req Request) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
