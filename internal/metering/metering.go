// Package metering drives one full metering attempt: it builds billing
// dimensions, invokes the CSP meter, interprets per-dimension status,
// and advances billing/reporting cursors on success. Grounded on
// csp_billing_adapter/bill_utils.py's process_metering, expanded per
// spec.md §4.6 with partial-success handling and archive recording
// that the distilled reference only stubs. NormalizingCSPClient (in
// boundary.go) resolves the legacy bare-string meter_billing return
// form before any of that logic runs.
package metering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/archive"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/billing"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cache"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspconfig"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/retry"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

// CSPClient is the subset of the CSP hook group the metering engine
// calls directly, already resolved to the canonical MeterResult form.
// NormalizingCSPClient is the adapter that gets a hooks.CSP to this
// interface.
type CSPClient interface {
	MeterBilling(ctx context.Context, cfg *config.Config, dimensions model.BilledDimensions, timestamp time.Time, dryRun bool) (model.MeterResult, error)
}

// ArchiveWriter is the subset of the archive hook group used here.
type ArchiveWriter interface {
	Append(ctx context.Context, entry archive.Entry) error
}

// Outcome summarizes one process_metering invocation for callers that
// need to distinguish the three paths (§4.6 steps 6-8) without
// re-deriving them from the mutated cache/csp_config.
type Outcome struct {
	BilledDimensions model.BilledDimensions
	Result           model.MeterResult
	Advanced         bool // true only on the full-success, non-empty-metering path
}

// Engine wires the CSP client and archive used by ProcessMetering. A
// fresh retry budget is applied to the meter_billing call on every
// invocation (spec.md §4.1: every external call flows through retry).
type Engine struct {
	CSP         CSPClient
	Archive     ArchiveWriter
	RetryOpts   retry.Options
}

// NewEngine builds an Engine with the default retry budget
// (3 additional attempts, 1s initial delay, no growth).
func NewEngine(csp CSPClient, arch ArchiveWriter) *Engine {
	return &Engine{
		CSP:     csp,
		Archive: arch,
		RetryOpts: retry.Options{
			RetryCount:  3,
			RetryDelay:  time.Second,
			DelayFactor: 1,
			FuncName:    "meter_billing",
		},
	}
}

// ProcessMetering runs the protocol described in spec.md §4.6, steps 1-8.
func (e *Engine) ProcessMetering(
	ctx context.Context,
	cfg *config.Config,
	now time.Time,
	c *cache.Cache,
	csp *cspconfig.CSPConfig,
	emptyMetering bool,
) (Outcome, error) {
	billableRecords, remaining, err := billing.FilterUsageRecordsInBillingPeriod(c.UsageRecords, cfg.BillingInterval, c.NextBillTime)
	if err != nil {
		return Outcome{}, err
	}
	if cfg.IsFixed() {
		// Fixed mode has no periodic window to filter against; every
		// buffered record is in play for the current bill.
		billableRecords = c.UsageRecords
		remaining = nil
	}

	billableUsage := billing.GetBillableUsage(billableRecords, cfg, emptyMetering)

	billedDimensions, err := billing.GetBillingDimensions(cfg, billableUsage, c.BillingStatus)
	if err != nil {
		csp.AppendError(err.Error())
		return Outcome{}, err
	}

	submissionID := uuid.New().String()

	result, meterErr := retry.DoValue(ctx, e.RetryOpts, func(ctx context.Context) (model.MeterResult, error) {
		return e.CSP.MeterBilling(ctx, cfg, billedDimensions, now, false)
	})

	// Fail path (step 6): meter_billing exhausted retries and returned
	// an error. Cursors, records, and last_bill are all left untouched.
	if meterErr != nil {
		csp.AppendError(meterErr.Error())
		csp.BillingAPIAccessOK = false
		return Outcome{BilledDimensions: billedDimensions}, meterErr
	}

	errs := result.Errors()

	// Partial-success path (step 7): at least one dimension failed.
	// Remember which ones succeeded so the next attempt this cycle
	// skips them; do not advance cursors or drop records.
	if len(errs) > 0 {
		for _, msg := range errs {
			csp.AppendError(msg)
		}
		csp.BillingAPIAccessOK = false
		c.BillingStatus = result
		return Outcome{BilledDimensions: billedDimensions, Result: result}, nil
	}

	// Full-success path (step 8).
	c.ClearBillingStatus()

	nextReportingTime := timeutil.GetDateDelta(now, cfg.ReportingInterval)
	c.NextReportingTime = &nextReportingTime
	csp.BillingAPIAccessOK = true
	csp.Expire = timeutil.DateToString(nextReportingTime)

	outcome := Outcome{BilledDimensions: billedDimensions, Result: result}

	if !emptyMetering {
		nextBillTime, err := timeutil.GetNextBillTime(c.NextBillTime, cfg.BillingInterval)
		if cfg.IsFixed() {
			err = c.UpdateBillingDates()
		} else if err == nil {
			c.NextBillTime = nextBillTime
		}
		if err != nil {
			return outcome, err
		}

		c.CacheMeterRecord(billedDimensions, result, timeutil.DateToString(now))
		c.UsageRecords = remaining
		if c.UsageRecords == nil {
			c.UsageRecords = []model.UsageRecord{}
		}

		csp.Usage = billableUsage
		csp.LastBilled = timeutil.DateToString(now)

		if e.Archive != nil {
			entry := archive.Entry{
				SubmissionID:  submissionID,
				BillingTime:   timeutil.DateToString(now),
				BillingStatus: result,
				BilledUsage:   billedDimensions,
				UsageRecords: billableRecords,
			}
			if err := e.Archive.Append(ctx, entry); err != nil {
				// Archive is an audit trail, not a correctness
				// dependency: log-and-continue rather than fail
				// a metering cycle that already succeeded at the CSP.
				csp.AppendError("archive append failed: " + err.Error())
			}
		}

		outcome.Advanced = true
	}

	return outcome, nil
}
