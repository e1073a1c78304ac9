// Package model holds the wire-shaped data types shared by the cache,
// csp-config, billing, and metering packages: usage records, billed
// dimensions, and the CSP metering response. Kept separate so those
// packages can depend on a common vocabulary without importing each
// other (design note: "document-shaped state -> tagged structs").
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// UsageRecord is one immutable sample appended to the cache's usage
// buffer. Metric values are looked up by name since the set of metrics
// is configuration-defined, not fixed at compile time.
type UsageRecord struct {
	ReportingTime time.Time
	Metrics       map[string]int64
	BaseProduct   string
}

// Value returns the record's value for metric, or 0 if absent — usage
// records are sparse by design (a record need not carry every
// configured metric).
func (r UsageRecord) Value(metric string) int64 {
	return r.Metrics[metric]
}

// reportingTimeKey and baseProductKey are the only reserved top-level
// keys in a UsageRecord's wire form; every other key is a metric name.
const (
	reportingTimeKey = "reporting_time"
	baseProductKey   = "base_product"
)

// MarshalJSON flattens Metrics to top-level keys alongside
// reporting_time and base_product, matching csp_billing_adapter's
// on-disk usage record shape (`{reporting_time, <metric>: int,
// base_product?}`) rather than nesting metrics under their own key.
func (r UsageRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Metrics)+2)
	flat[reportingTimeKey] = r.ReportingTime.UTC().Format(time.RFC3339Nano)
	for name, value := range r.Metrics {
		flat[name] = value
	}
	if r.BaseProduct != "" {
		flat[baseProductKey] = r.BaseProduct
	}
	return json.Marshal(flat)
}

// UnmarshalJSON is the inverse of MarshalJSON: any key other than
// reporting_time/base_product is read back into Metrics.
func (r *UsageRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	metrics := make(map[string]int64, len(raw))
	for key, value := range raw {
		switch key {
		case reportingTimeKey:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("model: usage record reporting_time: %w", err)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("model: usage record reporting_time: %w", err)
			}
			r.ReportingTime = t
		case baseProductKey:
			if err := json.Unmarshal(value, &r.BaseProduct); err != nil {
				return fmt.Errorf("model: usage record base_product: %w", err)
			}
		default:
			var n int64
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("model: usage record metric %q: %w", key, err)
			}
			metrics[key] = n
		}
	}

	if len(metrics) > 0 {
		r.Metrics = metrics
	} else {
		r.Metrics = nil
	}
	return nil
}

// DimensionStatus is the per-dimension outcome of a meter_billing call,
// the canonical form of the CSP's mapping return type.
type DimensionStatus struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSubmitted = "submitted"
)

// BilledDimensions maps a billing dimension name to its billed quantity.
type BilledDimensions map[string]int64

// MeterResult is the normalized return value of a CSP meter_billing
// call: a per-dimension status map. The CSP return polymorphism
// (mapping vs. bare opaque string) is resolved into this sum type at
// the CSP-client boundary before the metering engine ever sees it
// (design note: "CSP return polymorphism").
type MeterResult map[string]DimensionStatus

// Errors collects the .Error field of every entry that carries one,
// in map-iteration order sorted by dimension name for determinism.
func (r MeterResult) Errors() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]string, 0)
	for _, name := range names {
		if e := r[name].Error; e != "" {
			errs = append(errs, e)
		}
	}
	return errs
}

// NormalizeMeterResult resolves a CSP's raw meter_billing return value
// into the canonical MeterResult sum type (design note: "CSP return
// polymorphism"). raw is either already the canonical per-dimension
// mapping, or a bare opaque string — the legacy form — in which case
// every dimension in submitted is recorded as succeeded with that
// string as its record id. Any other shape is rejected.
func NormalizeMeterResult(raw interface{}, submitted BilledDimensions) (MeterResult, error) {
	switch v := raw.(type) {
	case nil:
		return MeterResult{}, nil
	case MeterResult:
		return v, nil
	case map[string]DimensionStatus:
		return MeterResult(v), nil
	case string:
		result := make(MeterResult, len(submitted))
		for dim := range submitted {
			result[dim] = DimensionStatus{Status: StatusSucceeded, RecordID: v}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("model: meter_billing returned unsupported type %T", raw)
	}
}

// LastBill records the most recent submitted (or attempted) bill.
type LastBill struct {
	Dimensions   BilledDimensions `json:"dimensions,omitempty"`
	BillingStatus MeterResult     `json:"billing_status,omitempty"`
	MeteringTime string          `json:"metering_time,omitempty"`
}

// IsEmpty reports whether no bill has been recorded yet.
func (b LastBill) IsEmpty() bool {
	return len(b.Dimensions) == 0 && b.MeteringTime == ""
}
