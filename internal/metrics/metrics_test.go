package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

func TestEventLoopMetricsInitialization(t *testing.T) {
	if TicksTotal == nil {
		t.Error("TicksTotal should be initialized")
	}
	if MeteringAttemptsTotal == nil {
		t.Error("MeteringAttemptsTotal should be initialized")
	}
	if MeteringFailuresTotal == nil {
		t.Error("MeteringFailuresTotal should be initialized")
	}
	if BilledDimensionsTotal == nil {
		t.Error("BilledDimensionsTotal should be initialized")
	}
	if HookCallDuration == nil {
		t.Error("HookCallDuration should be initialized")
	}
	if RetryAttemptsTotal == nil {
		t.Error("RetryAttemptsTotal should be initialized")
	}
}

func TestRecordBilledDimensionsTalliesByStatus(t *testing.T) {
	before := testutil.ToFloat64(BilledDimensionsTotal.WithLabelValues(model.StatusSucceeded))

	RecordBilledDimensions(model.MeterResult{
		"tier-1": {Status: model.StatusSucceeded},
		"tier-2": {Status: model.StatusSucceeded},
		"tier-3": {Status: model.StatusFailed},
	})

	after := testutil.ToFloat64(BilledDimensionsTotal.WithLabelValues(model.StatusSucceeded))
	if after-before != 2 {
		t.Errorf("expected succeeded count to increase by 2, got delta %v", after-before)
	}

	failed := testutil.ToFloat64(BilledDimensionsTotal.WithLabelValues(model.StatusFailed))
	if failed < 1 {
		t.Errorf("expected at least 1 failed dimension recorded, got %v", failed)
	}
}

func TestRecordBilledDimensionsEmptyResultNoOp(t *testing.T) {
	before := testutil.ToFloat64(BilledDimensionsTotal.WithLabelValues(model.StatusSucceeded))
	RecordBilledDimensions(model.MeterResult{})
	after := testutil.ToFloat64(BilledDimensionsTotal.WithLabelValues(model.StatusSucceeded))
	if before != after {
		t.Errorf("expected no change for an empty result, got delta %v", after-before)
	}
}
