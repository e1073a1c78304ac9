// Command adapter is the csp-billing-adapter daemon entrypoint.
// Grounded on the teacher's cmd/main.go: env-var-driven setup, a
// mux with /health, /health/live and /metrics, and signal-driven
// graceful shutdown — generalized to the metering event loop instead
// of an HTTP API server. Like original_source/adapter.py's bare main()
// it uses no CLI framework: the standard flag package reads
// --config-file, --addr and --redis-addr.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/adapter"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspadapter"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/health"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/hooks"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/plugins/localcsp"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/plugins/memory"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/plugins/redisstore"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/plugins/usagesource"
)

func main() {
	configFile := flag.String("config-file", "", "path to the adapter's YAML config (defaults to CSP_ADAPTER_CONFIG_FILE or /etc/csp_billing_adapter/config.yaml)")
	addr := flag.String("addr", ":8080", "address to serve /health and /metrics on")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_URL"), "Redis address for cache/csp_config/archive storage; empty selects in-memory storage")
	flag.Parse()

	logger.InitFromEnv()
	logger.Info().Msg("starting csp-billing-adapter")

	reg, storagePing, closeStorage, err := buildRegistry(*redisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage backend")
	}
	if closeStorage != nil {
		defer closeStorage()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := adapter.Bootstrap(ctx, *configFile, reg)
	if err != nil {
		exitCode := 1
		var ec cspadapter.ExitCoder
		if errors.As(err, &ec) {
			exitCode = ec.ExitCode()
		}
		logger.Error().Err(err).Int("exit_code", exitCode).Msg("bootstrap failed")
		os.Exit(exitCode)
	}

	healthChecker := health.New("0.1.0")
	healthChecker.Register("tick", health.TickChecker(a.LastTick, 2*time.Minute))
	healthChecker.Register("storage", health.StorageChecker(storagePing))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.Handler())
	mux.HandleFunc("/health/live", health.LivenessHandler())
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("serving health and metrics endpoints")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health/metrics server failed")
		}
	}()

	runErr := a.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("health/metrics server shutdown error")
	}

	if runErr != nil {
		exitCode := 1
		var ec cspadapter.ExitCoder
		if errors.As(runErr, &ec) {
			exitCode = ec.ExitCode()
		}
		logger.Error().Err(runErr).Int("exit_code", exitCode).Msg("event loop exited with error")
		os.Exit(exitCode)
	}

	logger.Info().Msg("csp-billing-adapter stopped")
}

func buildRegistry(redisAddr string) (hooks.Registry, health.Pingable, func(), error) {
	usageHook := usagesource.New()
	cspHook := localcsp.New()

	if redisAddr == "" {
		return hooks.Registry{
			Usage:     usageHook,
			CSP:       cspHook,
			Cache:     memory.NewCacheStore(),
			CSPConfig: memory.NewCSPConfigStore(),
			Archive:   memory.NewArchiveStore("memory://local"),
		}, nil, nil, nil
	}

	store, err := redisstore.New(redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		return hooks.Registry{}, nil, nil, err
	}

	return hooks.Registry{
		Usage:     usageHook,
		CSP:       cspHook,
		Cache:     store,
		CSPConfig: store,
		Archive:   store,
	}, store, func() { _ = store.Close() }, nil
}
