package client

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

var breakerStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_http_breaker_transitions_total",
	Help: "Circuit breaker state transitions by target state",
}, []string{"name", "to"})

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset (0 = never).
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns a breaker that opens after 5 consecutive failures.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// newBreaker builds the gobreaker instance, or nil when disabled.
func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	if cfg.ConsecutiveFailures == 0 {
		return nil
	}

	threshold := cfg.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			breakerStateChanges.WithLabelValues(name, to.String()).Inc()
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		// 4xx answers mean the upstream is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassOf(err) == ErrorClassClient
		},
	})
}

// isBreakerRejection reports whether err came from an open or saturated breaker.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
