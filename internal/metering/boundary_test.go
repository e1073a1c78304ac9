package metering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

type fakeRawCSP struct {
	raw interface{}
	err error
}

func (f *fakeRawCSP) MeterBilling(ctx context.Context, cfg *config.Config, dims model.BilledDimensions, ts time.Time, dryRun bool) (interface{}, error) {
	return f.raw, f.err
}

func (f *fakeRawCSP) GetCSPName(ctx context.Context, cfg *config.Config) (string, error) { return "", nil }
func (f *fakeRawCSP) GetAccountInfo(ctx context.Context, cfg *config.Config) (map[string]string, error) {
	return nil, nil
}
func (f *fakeRawCSP) GetVersion(ctx context.Context) (string, string, error) { return "", "", nil }

// Scenario 6: a legacy CSP plugin returns a bare opaque string; the
// boundary client resolves it into a full-success MeterResult before
// the engine sees it.
func TestNormalizingCSPClientResolvesLegacyStringForm(t *testing.T) {
	raw := &fakeRawCSP{raw: "abc123"}
	client := NewNormalizingCSPClient(raw)

	result, err := client.MeterBilling(context.Background(), nil, model.BilledDimensions{"tier_1": 7}, time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, ok := result["tier_1"]
	if !ok || status.Status != model.StatusSucceeded || status.RecordID != "abc123" {
		t.Errorf("expected tier_1 synthesized as succeeded with record id abc123, got %#v", result)
	}
}

func TestNormalizingCSPClientPassesThroughCanonicalMapping(t *testing.T) {
	canonical := model.MeterResult{"tier_1": {Status: model.StatusFailed, Error: "boom"}}
	raw := &fakeRawCSP{raw: canonical}
	client := NewNormalizingCSPClient(raw)

	result, err := client.MeterBilling(context.Background(), nil, model.BilledDimensions{"tier_1": 7}, time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["tier_1"].Status != model.StatusFailed {
		t.Errorf("expected canonical mapping passed through unchanged, got %#v", result)
	}
}

func TestNormalizingCSPClientPropagatesUnderlyingError(t *testing.T) {
	raw := &fakeRawCSP{err: errors.New("unreachable")}
	client := NewNormalizingCSPClient(raw)

	_, err := client.MeterBilling(context.Background(), nil, model.BilledDimensions{"tier_1": 7}, time.Now(), false)
	if err == nil {
		t.Fatal("expected the underlying error to propagate")
	}
}
