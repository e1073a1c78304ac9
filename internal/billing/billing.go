// Package billing translates raw usage records into billable usage and
// then into CSP billing dimensions, grounded on
// csp_billing_adapter/bill_utils.py and generalized per spec.md §4.5 to
// cover tiered consumption reporting alongside the original's volume-only
// model.
package billing

import (
	"math"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspadapter"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

// FilterUsageRecordsInBillingPeriod splits records into those whose
// reporting_time falls in [prev_bill_time(end, interval), end) — the
// "billable" set — and everything else, which survives into the next
// cycle.
func FilterUsageRecordsInBillingPeriod(
	records []model.UsageRecord,
	interval timeutil.BillingInterval,
	billingPeriodEnd time.Time,
) (billable, remaining []model.UsageRecord, err error) {
	periodStart, err := timeutil.GetPrevBillTime(billingPeriodEnd, interval)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range records {
		if !r.ReportingTime.Before(periodStart) && r.ReportingTime.Before(billingPeriodEnd) {
			billable = append(billable, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	return billable, remaining, nil
}

func averageUsage(metric string, records []model.UsageRecord) int64 {
	if len(records) == 0 {
		return 0
	}
	var total int64
	for _, r := range records {
		total += r.Value(metric)
	}
	return int64(math.Ceil(float64(total) / float64(len(records))))
}

func maxUsage(metric string, records []model.UsageRecord) int64 {
	var max int64
	for _, r := range records {
		if v := r.Value(metric); v > max {
			max = v
		}
	}
	return max
}

// GetBillableUsage computes the per-metric billable quantity: the
// configured aggregation applied to records, floored at
// minimum_consumption. emptyUsage short-circuits every metric to 0,
// used for reporting-interval "liveness" ticks that must still touch
// the CSP API without billing anything (spec.md §4.5, §4.6).
func GetBillableUsage(records []model.UsageRecord, cfg *config.Config, emptyUsage bool) map[string]int64 {
	billable := make(map[string]int64, len(cfg.UsageMetrics))

	if emptyUsage {
		for metric := range cfg.UsageMetrics {
			billable[metric] = 0
		}
		return billable
	}

	for metric, metricCfg := range cfg.UsageMetrics {
		var usage int64
		switch metricCfg.UsageAggregation {
		case config.AggregationAverage:
			usage = averageUsage(metric, records)
		case config.AggregationMaximum:
			usage = maxUsage(metric, records)
		}

		if floor := metricCfg.MinConsumption(); floor > usage {
			usage = floor
		}
		billable[metric] = usage
	}

	return billable
}

// volumeDimension scans dimensions in order and returns the first
// whose [min, max] range contains usage. All usage bills to that
// single matching dimension.
func volumeDimension(metric string, usage int64, dims []config.Dimension) (string, error) {
	for _, d := range dims {
		if d.HasMin() && usage < *d.Min {
			continue
		}
		if d.HasMax() && usage > *d.Max {
			continue
		}
		return d.Dimension, nil
	}
	return "", &cspadapter.NoMatchingVolumeDimensionError{Metric: metric, Value: usage}
}

// tieredDimensions fills each configured dimension in order with the
// portion of usage overlapping its [min, max] range, using inclusive-
// range counting: a dimension covering [min, max] absorbs
// min(usage, max) - max(min, 1) + 1 units once usage reaches its min.
// Returns an error if, after walking every tier, some usage remains
// unassigned (a gap in the tier coverage).
func tieredDimensions(metric string, usage int64, dims []config.Dimension) (model.BilledDimensions, error) {
	result := model.BilledDimensions{}
	var assigned int64

	for _, d := range dims {
		min := int64(1)
		if d.HasMin() {
			min = *d.Min
		}
		if usage < min {
			continue
		}

		upper := usage
		if d.HasMax() && *d.Max < upper {
			upper = *d.Max
		}

		lower := min
		if lower < 1 {
			lower = 1
		}

		dimUsage := upper - lower + 1
		if dimUsage <= 0 {
			continue
		}

		result[d.Dimension] = dimUsage
		assigned += dimUsage
	}

	if assigned < usage {
		return nil, &cspadapter.MissingTieredDimensionError{Metric: metric, Value: usage}
	}

	return result, nil
}

// GetBillingDimensions dispatches each metric's billable usage to its
// configured consumption_reporting model, skipping any dimension whose
// prior submission in billingStatus already succeeded (no
// double-billing within a cycle — invariant 5).
func GetBillingDimensions(
	cfg *config.Config,
	billableUsage map[string]int64,
	billingStatus model.MeterResult,
) (model.BilledDimensions, error) {
	billed := model.BilledDimensions{}

	for metric, usage := range billableUsage {
		metricCfg, ok := cfg.UsageMetrics[metric]
		if !ok {
			continue
		}

		switch metricCfg.ConsumptionReporting {
		case config.ConsumptionVolume:
			dim, err := volumeDimension(metric, usage, metricCfg.Dimensions)
			if err != nil {
				return nil, err
			}
			if alreadySucceeded(billingStatus, dim) {
				continue
			}
			billed[dim] = usage

		case config.ConsumptionTiered:
			dims, err := tieredDimensions(metric, usage, metricCfg.Dimensions)
			if err != nil {
				return nil, err
			}
			for name, qty := range dims {
				if alreadySucceeded(billingStatus, name) {
					continue
				}
				billed[name] = qty
			}

		default:
			return nil, &cspadapter.ConsumptionReportingInvalidError{
				Metric: metric,
				Value:  string(metricCfg.ConsumptionReporting),
			}
		}
	}

	return billed, nil
}

// alreadySucceeded reports whether dimension dim's previous submission
// in this cycle returned succeeded, in which case it must not be
// resubmitted (invariant 5).
func alreadySucceeded(billingStatus model.MeterResult, dim string) bool {
	if billingStatus == nil {
		return false
	}
	return billingStatus[dim].Status == model.StatusSucceeded
}
