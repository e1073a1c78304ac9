// Package adapter implements the event loop: bootstrap, the metering
// test, and the steady-state tick. Grounded on csp_billing_adapter's
// adapter.py/host.py main(), restructured per spec.md §4.7 into
// explicit Bootstrap/Run phases with retry around every external call
// and exit codes matching §6/§7 instead of main()'s try/except ladder.
package adapter

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/archive"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cache"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspadapter"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspconfig"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/hooks"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/metering"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/metrics"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/retry"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

// archiveStoreAdapter binds a hooks.ArchiveStore to a fixed config so
// it satisfies archive.Store's simpler Load/Save(ctx) shape.
type archiveStoreAdapter struct {
	hook hooks.ArchiveStore
	cfg  *config.Config
}

func (a archiveStoreAdapter) Load(ctx context.Context) ([]archive.Entry, error) {
	return a.hook.GetMeteringArchive(ctx, a.cfg)
}

func (a archiveStoreAdapter) Save(ctx context.Context, entries []archive.Entry) error {
	return a.hook.SaveMeteringArchive(ctx, a.cfg, entries)
}

// defaultRetryOpts is the retry budget applied to every hook call per
// spec.md §4.1 (3 additional retries, 1s delay, no growth).
func defaultRetryOpts(name string) retry.Options {
	return retry.Options{RetryCount: 3, RetryDelay: time.Second, DelayFactor: 1, FuncName: name}
}

// Adapter owns the registry and the live cache/csp_config mirrors; it
// is the sole owner of both for the lifetime of the process
// (§5: single-threaded cooperative scheduling, no shared mutable state
// beyond these two mirrors).
type Adapter struct {
	hooks  hooks.Registry
	cfg    *config.Config
	cache  *cache.Cache
	csp    *cspconfig.CSPConfig
	engine *metering.Engine

	lastTick atomic.Value // time.Time
}

// LastTick returns the start time of the most recently completed event
// loop iteration, or the zero time before the first one completes.
// Exposed for health.TickChecker.
func (a *Adapter) LastTick() time.Time {
	if t, ok := a.lastTick.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// Bootstrap performs spec.md §4.7 steps 1-6: load config, set up
// storage documents, enrich csp_config, and run the metering test.
// Returns the ready-to-run Adapter, or an error that the caller should
// translate into an exit code via cspadapter.ExitCoder.
func Bootstrap(ctx context.Context, configPath string, reg hooks.Registry) (*Adapter, error) {
	var extraDefaults config.Defaults
	if reg.Defaults != nil {
		extraDefaults = reg.Defaults.LoadDefaults()
	}

	cfg, err := config.Load(configPath, extraDefaults)
	if err != nil {
		return nil, &cspadapter.InvalidConfigError{Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &cspadapter.InvalidConfigError{Cause: err}
	}

	if cfg.Logging.Level != "" {
		logger.SetLevel(cfg.Logging.Level)
	}

	if dump, dumpErr := cfg.DumpYAML(); dumpErr == nil {
		logger.Debug().Str("config", string(dump)).Msg("effective configuration")
	}

	a := &Adapter{hooks: reg, cfg: cfg}

	if name, err := reg.CSP.GetCSPName(ctx, cfg); err == nil {
		logger.Info().Str("csp", name).Str("namespace", cfg.Namespace).Msg("starting billing adapter")
	}

	if err := a.setupCSPConfig(ctx); err != nil {
		return nil, err
	}

	initialDeploy, err := a.setupCache(ctx)
	if err != nil {
		return nil, err
	}

	a.engine = metering.NewEngine(
		metering.NewBreakerCSPClient(metering.NewNormalizingCSPClient(reg.CSP)),
		archive.New(archiveStoreAdapter{reg.Archive, cfg}, cfg.ArchiveRetentionPeriod, cfg.ArchiveBytesLimit),
	)

	if err := a.meteringTest(ctx); err != nil {
		a.csp.AppendError(err.Error())
		_ = retry.Do(ctx, defaultRetryOpts("save_csp_config"), func(ctx context.Context) error {
			return reg.CSPConfig.SaveCSPConfig(ctx, cfg, a.csp)
		})
		return nil, err
	}

	if initialDeploy {
		logger.Info().Msg("initial deploy: sleeping one query_interval for first samples")
		select {
		case <-time.After(time.Duration(cfg.QueryInterval) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		a.cache.ConsumeTrial()
	}

	return a, nil
}

func (a *Adapter) setupCSPConfig(ctx context.Context) error {
	existing, err := retry.DoValue(ctx, defaultRetryOpts("get_csp_config"), func(ctx context.Context) (*cspconfig.CSPConfig, error) {
		return a.hooks.CSPConfig.GetCSPConfig(ctx, a.cfg)
	})
	if err == nil && existing != nil {
		a.csp = existing
		return nil
	}

	now := timeutil.Now()
	archiveLocation, _ := retry.DoValue(ctx, defaultRetryOpts("get_archive_location"), func(ctx context.Context) (string, error) {
		return a.hooks.Archive.GetArchiveLocation(ctx)
	})

	accountInfo, _ := retry.DoValue(ctx, defaultRetryOpts("get_account_info"), func(ctx context.Context) (map[string]string, error) {
		return a.hooks.CSP.GetAccountInfo(ctx, a.cfg)
	})

	var expire time.Time
	if a.cfg.IsFixed() {
		expire, err = timeutil.StringToDate(a.cfg.EndOfSupport)
		if err != nil {
			return &cspadapter.FailedToSaveCSPConfigError{Cause: err}
		}
	} else {
		expire = timeutil.GetDateDelta(now, a.cfg.ReportingInterval)
	}

	csp := cspconfig.New(now, archiveLocation, expire, accountInfo)

	if name, version, verErr := a.hooks.CSP.GetVersion(ctx); verErr == nil {
		csp.SetVersions(name, version)
	}
	if billingID := os.Getenv(config.CustomerBillingIDEnvVar); billingID != "" && a.cfg.IsFixed() {
		csp.CustomerBillingID = billingID
	}

	if err := retry.Do(ctx, defaultRetryOpts("save_csp_config"), func(ctx context.Context) error {
		return a.hooks.CSPConfig.SaveCSPConfig(ctx, a.cfg, csp)
	}); err != nil {
		return &cspadapter.FailedToSaveCSPConfigError{Cause: err}
	}

	a.csp = csp
	return nil
}

func (a *Adapter) setupCache(ctx context.Context) (initialDeploy bool, err error) {
	existing, getErr := retry.DoValue(ctx, defaultRetryOpts("get_cache"), func(ctx context.Context) (*cache.Cache, error) {
		return a.hooks.Cache.GetCache(ctx, a.cfg)
	})
	if getErr == nil && existing != nil {
		a.cache = existing
		return false, nil
	}

	now := timeutil.Now()
	var c *cache.Cache
	var buildErr error
	if a.cfg.IsFixed() {
		c, buildErr = cache.NewFixed(now, a.cfg.BillingDates, a.cfg.EndOfSupport)
	} else {
		c, buildErr = cache.New(now, a.cfg.BillingInterval)
	}
	if buildErr != nil {
		return false, &cspadapter.FailedToSaveCacheError{Cause: buildErr}
	}

	if err := retry.Do(ctx, defaultRetryOpts("save_cache"), func(ctx context.Context) error {
		return a.hooks.Cache.SaveCache(ctx, a.cfg, c)
	}); err != nil {
		return false, &cspadapter.FailedToSaveCacheError{Cause: err}
	}

	a.cache = c
	return true, nil
}

// meteringTest performs the bootstrap dry-run CSP call (spec.md §4.7
// step 5): the first configured dimension of the first metric, at
// quantity 0, dry_run=true.
func (a *Adapter) meteringTest(ctx context.Context) error {
	metric, dim, ok := a.cfg.FirstDimension()
	if !ok {
		return &cspadapter.InvalidConfigError{Cause: errors.New("no usage_metrics/dimensions configured")}
	}

	dimensions := model.BilledDimensions{dim.Dimension: 0}

	_, err := a.hooks.CSP.MeterBilling(ctx, a.cfg, dimensions, timeutil.Now(), true)
	if err != nil {
		logger.Error().Err(err).Str("metric", metric).Msg("metering test failed")
		return &cspadapter.InvalidConfigError{Cause: err}
	}
	return nil
}

// Run is the steady-state loop of spec.md §4.7: sample usage, meter if
// due, persist, sleep the remainder of query_interval. It returns nil
// on a clean signal-driven shutdown (exit 0) or a non-nil error that
// the caller should translate via cspadapter.ExitCoder (exit 2) or
// treat as unexpected (exit 1).
func (a *Adapter) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			logger.Info().Msg("signal received, shutting down before next tick")
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		start := timeutil.Now()
		a.csp.ResetErrors()

		a.sampleUsage(ctx, start)

		if err := a.meterIfDue(ctx, start); err != nil {
			if cspadapter.IsProcessFatal(err) {
				return err
			}
			// Unmatched consumption / CSP failures are already recorded
			// into csp.Errors by the metering engine; the tick continues.
			logger.Error().Err(err).Msg("metering attempt failed; continuing to next tick")
		}

		a.persist(ctx)
		a.csp.Timestamp = timeutil.DateToString(start)

		sleepFor := a.sleepRemainder(start)
		logger.Tick(start, sleepFor)
		metrics.TicksTotal.Inc()
		a.lastTick.Store(start)

		select {
		case <-time.After(sleepFor):
		case <-sigCh:
			logger.Info().Msg("signal received during sleep, shutting down cleanly")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Adapter) sampleUsage(ctx context.Context, start time.Time) {
	record, err := retry.DoValue(ctx, defaultRetryOpts("get_usage_data"), func(ctx context.Context) (*model.UsageRecord, error) {
		return a.hooks.Usage.GetUsageData(ctx, a.cfg)
	})
	if err != nil {
		a.csp.AppendError("get_usage_data: " + err.Error())
		logger.HookFailure("get_usage_data", err)
		return
	}
	if record == nil {
		return
	}

	if err := a.cache.AddUsageRecord(*record, a.cfg.BillingInterval); err != nil {
		a.csp.AppendError("add_usage_record: " + err.Error())
		return
	}
	if record.BaseProduct != "" {
		a.csp.BaseProduct = record.BaseProduct
	}
}

func (a *Adapter) meterIfDue(ctx context.Context, start time.Time) error {
	var emptyMetering bool

	switch {
	case !start.Before(a.cache.NextBillTime):
		emptyMetering = false
	case a.cache.NextReportingTime != nil && !start.Before(*a.cache.NextReportingTime):
		emptyMetering = true
	default:
		return nil
	}

	outcome, err := a.engine.ProcessMetering(ctx, a.cfg, start, a.cache, a.csp, emptyMetering)
	logger.MeteringResult(emptyMetering, len(outcome.BilledDimensions), err)
	metrics.MeteringAttemptsTotal.Inc()
	if err != nil {
		metrics.MeteringFailuresTotal.Inc()
	}
	metrics.RecordBilledDimensions(outcome.Result)
	return err
}

func (a *Adapter) persist(ctx context.Context) {
	if err := retry.Do(ctx, defaultRetryOpts("update_cache"), func(ctx context.Context) error {
		return a.hooks.Cache.UpdateCache(ctx, a.cfg, a.cache, false)
	}); err != nil {
		a.csp.AppendError("update_cache: " + err.Error())
		logger.HookFailure("update_cache", err)
	}

	if err := retry.Do(ctx, defaultRetryOpts("update_csp_config"), func(ctx context.Context) error {
		return a.hooks.CSPConfig.UpdateCSPConfig(ctx, a.cfg, a.csp, false)
	}); err != nil {
		logger.HookFailure("update_csp_config", err)
	}
}

// sleepRemainder computes query_interval - elapsed, floored at zero.
func (a *Adapter) sleepRemainder(start time.Time) time.Duration {
	elapsed := timeutil.Now().Sub(start)
	remainder := time.Duration(a.cfg.QueryInterval)*time.Second - elapsed
	if remainder < 0 {
		return 0
	}
	return remainder
}
