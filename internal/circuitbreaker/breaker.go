// Package circuitbreaker wraps sony/gobreaker for protecting outbound
// CSP metering calls, adapted from the teacher's
// internal/circuitbreaker/breaker.go: the HTTP-specific client wrapper
// is dropped (this daemon makes no outbound HTTP calls of its own —
// CSP plugins own their transport) and Execute is generalized with a
// type parameter so callers get back a typed result instead of casting
// through interface{}.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
)

// ErrCircuitOpen is returned in place of gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests when a call is rejected without being
// attempted; it does not wrap either of them.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	Name         string
	MaxRequests  uint32        // Max requests allowed in half-open state
	Interval     time.Duration // Cyclic period for clearing counts (0 = never clears)
	Timeout      time.Duration // Period of open state before half-open
	FailureRatio float64       // Failure ratio that trips the breaker
	MinRequests  uint32        // Minimum requests before the ratio is checked
}

// DefaultConfig returns the breaker configuration used for meter_billing
// calls: a handful of consecutive marketplace failures should stop
// hammering the CSP API for a cooldown period, per spec.md §4.1's
// retry budget existing alongside (not instead of) backoff.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     0,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// Breaker wraps gobreaker.CircuitBreaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a new circuit breaker.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", stateName(from)).
				Str("to", stateName(to)).
				Msg("circuit breaker state change")
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn with circuit breaker protection, returning a typed
// result.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrCircuitOpen
		}
		return zero, err
	}
	return result.(T), nil
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() string {
	return stateName(b.cb.State())
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
