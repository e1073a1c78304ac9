// Package cache is the in-memory mirror of the persistent cache
// document: the usage-record buffer, billing cursor, and last-bill
// summary. Grounded on csp_billing_adapter/csp_cache.py, generalized
// with the tiered/partial-success bookkeeping spec.md adds on top of
// the reference implementation's simpler create/add/meter_record trio.
package cache

import (
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

// Cache is the durable document described in spec.md §3.
type Cache struct {
	AdapterStartTime time.Time          `json:"adapter_start_time"`
	NextBillTime     time.Time          `json:"next_bill_time"`
	NextReportingTime *time.Time        `json:"next_reporting_time,omitempty"`
	UsageRecords     []model.UsageRecord `json:"usage_records"`
	LastBill         model.LastBill     `json:"last_bill"`
	BillingStatus    model.MeterResult  `json:"billing_status,omitempty"`
	TrialRemaining   int                `json:"trial_remaining"`

	// Fixed mode only.
	RemainingBillingDates []string `json:"remaining_billing_dates,omitempty"`
	ConfiguredBillingDates []string `json:"configured_billing_dates,omitempty"`
	EndOfSupport          string   `json:"end_of_support,omitempty"`
}

// Fixed reports whether this cache was created in fixed billing mode.
func (c *Cache) Fixed() bool {
	return c.ConfiguredBillingDates != nil
}

// New builds the initial cache document for periodic (non-fixed) mode.
// Save failure at bootstrap is the caller's responsibility to surface
// as FailedToSaveCacheError (spec.md §4.3).
func New(now time.Time, interval timeutil.BillingInterval) (*Cache, error) {
	nextBill, err := timeutil.GetNextBillTime(now, interval)
	if err != nil {
		return nil, err
	}

	return &Cache{
		AdapterStartTime: now,
		NextBillTime:     nextBill,
		UsageRecords:     []model.UsageRecord{},
		LastBill:         model.LastBill{},
		TrialRemaining:   1,
	}, nil
}

// NewFixed builds the initial cache document for fixed billing mode,
// where next_bill_time tracks the head of the remaining date list
// rather than being computed from the billing interval.
func NewFixed(now time.Time, billingDates []string, endOfSupport string) (*Cache, error) {
	remaining := append([]string(nil), billingDates...)

	c := &Cache{
		AdapterStartTime:       now,
		UsageRecords:           []model.UsageRecord{},
		LastBill:               model.LastBill{},
		TrialRemaining:         0,
		RemainingBillingDates:  remaining,
		ConfiguredBillingDates: append([]string(nil), billingDates...),
		EndOfSupport:           endOfSupport,
	}

	if len(remaining) > 0 {
		nextBill, err := timeutil.StringToDate(remaining[0])
		if err != nil {
			return nil, err
		}
		c.NextBillTime = nextBill
	}

	return c, nil
}

// ConsumeTrial clears the trial flag. adapter.Bootstrap calls it on an
// initial deploy, once the first query_interval sleep has ended and
// before the first tick (supplemented feature, §4 of SPEC_FULL.md).
func (c *Cache) ConsumeTrial() {
	c.TrialRemaining = 0
}

// RecordValid reports whether reportingTime falls within the currently
// open billing window: prev_bill_time(next_bill_time, interval) <=
// reporting_time. In fixed mode the validator is bypassed per spec.md
// §4.3 (how stale records are bounded in fixed mode is an open
// question the spec leaves unresolved).
func RecordValid(reportingTime time.Time, nextBillTime time.Time, interval timeutil.BillingInterval, fixed bool) (bool, error) {
	if fixed {
		return true, nil
	}

	prevBillTime, err := timeutil.GetPrevBillTime(nextBillTime, interval)
	if err != nil {
		return false, err
	}

	return !prevBillTime.After(reportingTime), nil
}

// AddUsageRecord appends record if it falls within the current billing
// window and is not a duplicate of the immediately preceding record
// (duplicate suppression is by *last* record time only, per invariant
// 2). Invalid-window records are silently rejected, matching the
// reference behavior of dropping rather than erroring on stale samples.
func (c *Cache) AddUsageRecord(record model.UsageRecord, interval timeutil.BillingInterval) error {
	valid, err := RecordValid(record.ReportingTime, c.NextBillTime, interval, c.Fixed())
	if err != nil {
		return err
	}
	if !valid {
		return nil
	}

	if n := len(c.UsageRecords); n > 0 && c.UsageRecords[n-1].ReportingTime.Equal(record.ReportingTime) {
		return nil
	}

	c.UsageRecords = append(c.UsageRecords, record)
	return nil
}

// CacheMeterRecord writes last_bill but deliberately leaves
// usage_records untouched — dropping billed records is the metering
// engine's responsibility (spec.md §4.3), since only the engine knows
// which records were inside the billed window.
func (c *Cache) CacheMeterRecord(dimensions model.BilledDimensions, billingStatus model.MeterResult, meteringTime string) {
	c.LastBill = model.LastBill{
		Dimensions:    dimensions,
		BillingStatus: billingStatus,
		MeteringTime:  meteringTime,
	}
}

// UpdateBillingDates advances the fixed-mode date cursor: pops the
// just-billed date off the front of RemainingBillingDates and sets
// NextBillTime to the new head, or to EndOfSupport if the list is
// exhausted.
func (c *Cache) UpdateBillingDates() error {
	if !c.Fixed() {
		return nil
	}

	if len(c.RemainingBillingDates) > 0 {
		c.RemainingBillingDates = c.RemainingBillingDates[1:]
	}

	if len(c.RemainingBillingDates) > 0 {
		next, err := timeutil.StringToDate(c.RemainingBillingDates[0])
		if err != nil {
			return err
		}
		c.NextBillTime = next
		return nil
	}

	if c.EndOfSupport != "" {
		next, err := timeutil.StringToDate(c.EndOfSupport)
		if err != nil {
			return err
		}
		c.NextBillTime = next
	}
	return nil
}

// Merge applies a shallow, present-fields-only update to c, matching
// the storage hooks' update_cache(replace=false) semantics. A field
// counts as present when it is non-zero (non-nil for slices and maps).
// TrialRemaining is never merged.
func (c *Cache) Merge(patch *Cache) {
	if patch == nil {
		return
	}
	if !patch.AdapterStartTime.IsZero() {
		c.AdapterStartTime = patch.AdapterStartTime
	}
	if !patch.NextBillTime.IsZero() {
		c.NextBillTime = patch.NextBillTime
	}
	if patch.NextReportingTime != nil {
		c.NextReportingTime = patch.NextReportingTime
	}
	if patch.UsageRecords != nil {
		c.UsageRecords = patch.UsageRecords
	}
	if !patch.LastBill.IsEmpty() {
		c.LastBill = patch.LastBill
	}
	if patch.BillingStatus != nil {
		c.BillingStatus = patch.BillingStatus
	}
	if patch.RemainingBillingDates != nil {
		c.RemainingBillingDates = patch.RemainingBillingDates
	}
	if patch.ConfiguredBillingDates != nil {
		c.ConfiguredBillingDates = patch.ConfiguredBillingDates
	}
	if patch.EndOfSupport != "" {
		c.EndOfSupport = patch.EndOfSupport
	}
}

// ClearBillingStatus deletes the partial-success bookkeeping after a
// full-success metering attempt (spec.md §4.6 step 8).
func (c *Cache) ClearBillingStatus() {
	c.BillingStatus = nil
}
