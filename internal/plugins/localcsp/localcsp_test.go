package localcsp

import (
	"context"
	"testing"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

func TestMeterBillingDryRunReturnsEmptyResult(t *testing.T) {
	c := New()
	raw, err := c.MeterBilling(context.Background(), nil, model.BilledDimensions{"tier-1": 10}, time.Now(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := raw.(model.MeterResult)
	if !ok || len(result) != 0 {
		t.Errorf("expected an empty model.MeterResult on dry run, got %#v", raw)
	}
}

func TestMeterBillingReturnsLegacyStringOrError(t *testing.T) {
	c := New()
	dims := model.BilledDimensions{"tier-1": 10, "tier-2": 20, "tier-3": 30}

	var sawSuccess, sawFailure bool
	for i := 0; i < 200; i++ {
		raw, err := c.MeterBilling(context.Background(), nil, dims, time.Now(), false)
		if err != nil {
			sawFailure = true
			continue
		}
		recordID, ok := raw.(string)
		if !ok || recordID == "" {
			t.Fatalf("expected a non-empty opaque record id string, got %#v", raw)
		}
		sawSuccess = true
	}
	if !sawSuccess || !sawFailure {
		t.Errorf("expected to observe both success and failure across 200 attempts: success=%v failure=%v", sawSuccess, sawFailure)
	}
}

func TestGetCSPNameAndAccountInfo(t *testing.T) {
	c := New()
	name, err := c.GetCSPName(context.Background(), nil)
	if err != nil || name != "local" {
		t.Errorf("expected ('local', nil), got (%q, %v)", name, err)
	}

	info, err := c.GetAccountInfo(context.Background(), nil)
	if err != nil || info["account_number"] != "123456789" {
		t.Errorf("unexpected account info: %v, err=%v", info, err)
	}
}

func TestGetVersion(t *testing.T) {
	c := New()
	name, version, err := c.GetVersion(context.Background())
	if err != nil || name != "local" || version == "" {
		t.Errorf("unexpected version info: (%q, %q, %v)", name, version, err)
	}
}
