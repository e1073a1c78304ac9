// Package retry implements the bounded exponential-backoff wrapper
// that every call into an external collaborator (storage, CSP, usage
// source, archive) flows through. It generalizes the retry connection
// loop seen in the teacher's cmd/main.go (`for i := 0; i < 10; i++ { ...
// time.Sleep(2 * time.Second) }`) into a single reusable helper with
// a multiplicative backoff factor, matching csp_billing_adapter's
// `retry()` decorator.
package retry

import (
	"context"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
)

// Options configures a retry attempt sequence.
type Options struct {
	// RetryCount is the number of *additional* attempts after the
	// first. Clamped to at least 1.
	RetryCount int
	// RetryDelay is the sleep before the first retry. A zero or
	// negative value is replaced with one second.
	RetryDelay time.Duration
	// DelayFactor multiplies RetryDelay after each attempt. A zero or
	// negative value is replaced with 1; a factor between 0 and 1 is
	// kept and shrinks the delay.
	DelayFactor float64
	// ShouldRetry decides whether a given error is retryable. A nil
	// value retries on every non-nil error.
	ShouldRetry func(error) bool
	// FuncName is used only for log context.
	FuncName string
}

func (o Options) clamped() Options {
	c := o
	if c.RetryCount <= 0 {
		c.RetryCount = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.DelayFactor <= 0 {
		c.DelayFactor = 1
	}
	return c
}

// Do executes call and, on a matching failure, sleeps RetryDelay,
// multiplies RetryDelay by DelayFactor, and retries up to RetryCount
// additional times before returning the last error.
func Do(ctx context.Context, opts Options, call func(ctx context.Context) error) error {
	o := opts.clamped()
	shouldRetry := o.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}

	delay := o.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= o.RetryCount; attempt++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) || attempt == o.RetryCount {
			break
		}

		logger.Warn().
			Err(lastErr).
			Str("func", o.FuncName).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying after failure")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * o.DelayFactor)
	}

	return lastErr
}

// DoValue is the generic, value-returning counterpart to Do, for calls
// that both produce a result and can fail (e.g. get_cache, meter_billing).
func DoValue[T any](ctx context.Context, opts Options, call func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, opts, func(ctx context.Context) error {
		v, callErr := call(ctx)
		if callErr == nil {
			result = v
		}
		return callErr
	})
	return result, err
}
