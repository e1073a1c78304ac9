package circuitbreaker

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.DefaultConfig())
	os.Exit(m.Run())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("meter_billing")

	if cfg.Name != "meter_billing" {
		t.Errorf("expected name 'meter_billing', got '%s'", cfg.Name)
	}
	if cfg.MaxRequests != 1 {
		t.Errorf("expected MaxRequests 1, got %d", cfg.MaxRequests)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.FailureRatio != 0.6 {
		t.Errorf("expected FailureRatio 0.6, got %f", cfg.FailureRatio)
	}
	if cfg.MinRequests != 5 {
		t.Errorf("expected MinRequests 5, got %d", cfg.MinRequests)
	}
}

func TestNew(t *testing.T) {
	breaker := New(DefaultConfig("test"))
	if breaker == nil {
		t.Fatal("expected non-nil breaker")
	}
	if breaker.cb == nil {
		t.Error("expected non-nil internal circuit breaker")
	}
}

func TestExecuteSuccess(t *testing.T) {
	breaker := New(DefaultConfig("test"))

	result, err := Execute(breaker, func() (string, error) {
		return "success", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %q", result)
	}
}

func TestExecutePropagatesUnderlyingError(t *testing.T) {
	breaker := New(DefaultConfig("test"))

	wantErr := errors.New("meter_billing unreachable")
	_, err := Execute(breaker, func() (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestStateStartsClosed(t *testing.T) {
	breaker := New(DefaultConfig("test"))
	if breaker.State() != "closed" {
		t.Errorf("expected 'closed', got %q", breaker.State())
	}
}

func TestExecuteTripsBreakerAfterFailureRatioExceeded(t *testing.T) {
	cfg := Config{
		Name:         "test",
		MaxRequests:  1,
		Interval:     time.Second,
		Timeout:      100 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
	breaker := New(cfg)
	failure := errors.New("failure")

	for i := 0; i < 5; i++ {
		_, _ = Execute(breaker, func() (struct{}, error) {
			return struct{}{}, failure
		})
	}

	if breaker.State() != "open" {
		t.Errorf("expected 'open' after exceeding the failure ratio, got %q", breaker.State())
	}
}

func TestExecuteReturnsErrCircuitOpenWhenTripped(t *testing.T) {
	cfg := Config{
		Name:         "test",
		MaxRequests:  1,
		Interval:     time.Second,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
	breaker := New(cfg)
	failure := errors.New("failure")

	for i := 0; i < 5; i++ {
		_, _ = Execute(breaker, func() (struct{}, error) {
			return struct{}{}, failure
		})
	}

	_, err := Execute(breaker, func() (struct{}, error) {
		return struct{}{}, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen once tripped, got %v", err)
	}
}

func TestErrCircuitOpenMessage(t *testing.T) {
	if ErrCircuitOpen.Error() != "circuit breaker is open" {
		t.Errorf("unexpected error message: %s", ErrCircuitOpen.Error())
	}
}
