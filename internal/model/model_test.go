package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRecordValueDefaultsToZero(t *testing.T) {
	r := UsageRecord{Metrics: map[string]int64{"nodes": 5}}
	assert.Equal(t, int64(5), r.Value("nodes"))
	assert.Equal(t, int64(0), r.Value("missing"))
}

func TestUsageRecordMarshalJSONFlattensMetrics(t *testing.T) {
	r := UsageRecord{
		ReportingTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Metrics:       map[string]int64{"nodes": 5, "cores": 20},
		BaseProduct:   "widget",
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, float64(5), flat["nodes"])
	assert.Equal(t, float64(20), flat["cores"])
	assert.Equal(t, "widget", flat["base_product"])
	assert.NotContains(t, flat, "metrics")
}

func TestUsageRecordRoundTripsThroughJSON(t *testing.T) {
	r := UsageRecord{
		ReportingTime: time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC),
		Metrics:       map[string]int64{"nodes": 7},
		BaseProduct:   "gadget",
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded UsageRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, r.ReportingTime.Equal(decoded.ReportingTime))
	assert.Equal(t, r.Metrics, decoded.Metrics)
	assert.Equal(t, r.BaseProduct, decoded.BaseProduct)
}

func TestUsageRecordUnmarshalJSONSparseMetricsOmitsBaseProduct(t *testing.T) {
	data := []byte(`{"reporting_time":"2024-01-01T00:00:00Z","nodes":3}`)

	var decoded UsageRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, int64(3), decoded.Value("nodes"))
	assert.Empty(t, decoded.BaseProduct)
}

func TestMeterResultErrorsSortedAndFiltered(t *testing.T) {
	result := MeterResult{
		"z-dim": {Status: StatusFailed, Error: "z failed"},
		"a-dim": {Status: StatusFailed, Error: "a failed"},
		"m-dim": {Status: StatusSucceeded},
	}

	errs := result.Errors()
	assert.Equal(t, []string{"a failed", "z failed"}, errs)
}

func TestMeterResultErrorsEmptyWhenAllSucceeded(t *testing.T) {
	result := MeterResult{"d": {Status: StatusSucceeded}}
	assert.Empty(t, result.Errors())
}

func TestLastBillIsEmpty(t *testing.T) {
	assert.True(t, (LastBill{}).IsEmpty())
	assert.False(t, (LastBill{MeteringTime: "2024-01-01T00:00:00Z"}).IsEmpty())
}

// Scenario 6: a legacy CSP returns a bare opaque string; every
// submitted dimension is synthesized as succeeded with that string as
// its record id.
func TestNormalizeMeterResultSynthesizesLegacyStringForm(t *testing.T) {
	result, err := NormalizeMeterResult("abc123", BilledDimensions{"tier_1": 7})
	assert.NoError(t, err)
	assert.Equal(t, MeterResult{
		"tier_1": {Status: StatusSucceeded, RecordID: "abc123"},
	}, result)
}

func TestNormalizeMeterResultPassesThroughCanonicalMapping(t *testing.T) {
	canonical := MeterResult{"tier_1": {Status: StatusFailed, Error: "boom"}}
	result, err := NormalizeMeterResult(canonical, BilledDimensions{"tier_1": 7})
	assert.NoError(t, err)
	assert.Equal(t, canonical, result)
}

func TestNormalizeMeterResultNilRawYieldsEmptyResult(t *testing.T) {
	result, err := NormalizeMeterResult(nil, BilledDimensions{"tier_1": 7})
	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestNormalizeMeterResultRejectsUnsupportedType(t *testing.T) {
	_, err := NormalizeMeterResult(42, BilledDimensions{"tier_1": 7})
	assert.Error(t, err)
}
