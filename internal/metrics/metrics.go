// Package metrics exposes the adapter's Prometheus series, adapted
// from the teacher's internal/metrics (same promauto/CounterVec style)
// with the HTTP/cart/DB series replaced by ones describing the event
// loop and metering outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

var (
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "csp_billing_adapter_ticks_total",
			Help: "Total number of event loop iterations completed",
		},
	)

	MeteringAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "csp_billing_adapter_metering_attempts_total",
			Help: "Total number of process_metering invocations",
		},
	)

	MeteringFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "csp_billing_adapter_metering_failures_total",
			Help: "Total number of process_metering invocations that returned an error",
		},
	)

	BilledDimensionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csp_billing_adapter_billed_dimensions_total",
			Help: "Total number of dimension submissions, by outcome status",
		},
		[]string{"status"},
	)

	HookCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csp_billing_adapter_hook_call_duration_seconds",
			Help:    "Latency of calls into storage/CSP/usage-source hooks",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"hook"},
	)

	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csp_billing_adapter_retry_attempts_total",
			Help: "Total number of retry attempts made against an external collaborator",
		},
		[]string{"func"},
	)
)

// RecordBilledDimensions tallies one meter_billing result by the status
// of each dimension it returned.
func RecordBilledDimensions(result model.MeterResult) {
	for _, d := range result {
		BilledDimensionsTotal.WithLabelValues(d.Status).Inc()
	}
}
