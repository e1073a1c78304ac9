// Package hooks models the pluggable capability surface spec.md §6
// describes as pluggy hookspecs: one interface per group (core
// lifecycle, CSP, storage, archive, defaults), composed into a single
// Registry the core holds by value. This replaces the reference
// implementation's reflective plugin-manager discovery with a static
// registry (design note: "dynamic-dispatch plugins -> interface set").
package hooks

import (
	"context"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/archive"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cache"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspconfig"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

// Defaults lets a plugin contribute default config values, merged under
// (i.e. overridden by) anything the user's YAML sets explicitly.
type Defaults interface {
	LoadDefaults() config.Defaults
}

// UsageSource is the "product API" collaborator: the system under
// metering reports its own usage samples through this hook.
type UsageSource interface {
	GetUsageData(ctx context.Context, cfg *config.Config) (*model.UsageRecord, error)
}

// CSP is the marketplace metering collaborator. MeterBilling returns
// the raw, unresolved meter_billing response: either a per-dimension
// status mapping (canonical form) or a bare opaque string (legacy
// form). Callers must resolve it through model.NormalizeMeterResult —
// metering.NormalizingCSPClient does this at the boundary before the
// metering engine ever sees a result (design note: "CSP return
// polymorphism").
type CSP interface {
	MeterBilling(ctx context.Context, cfg *config.Config, dimensions model.BilledDimensions, timestamp time.Time, dryRun bool) (interface{}, error)
	GetCSPName(ctx context.Context, cfg *config.Config) (string, error)
	GetAccountInfo(ctx context.Context, cfg *config.Config) (map[string]string, error)
	GetVersion(ctx context.Context) (name string, version string, err error)
}

// CacheStore is the cache document's persistence surface.
type CacheStore interface {
	GetCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error)
	SaveCache(ctx context.Context, cfg *config.Config, c *cache.Cache) error
	UpdateCache(ctx context.Context, cfg *config.Config, patch *cache.Cache, replace bool) error
}

// CSPConfigStore is the csp_config document's persistence surface.
type CSPConfigStore interface {
	GetCSPConfig(ctx context.Context, cfg *config.Config) (*cspconfig.CSPConfig, error)
	SaveCSPConfig(ctx context.Context, cfg *config.Config, c *cspconfig.CSPConfig) error
	UpdateCSPConfig(ctx context.Context, cfg *config.Config, patch *cspconfig.CSPConfig, replace bool) error
}

// ArchiveStore is the archive hook group's persistence surface.
type ArchiveStore interface {
	GetArchiveLocation(ctx context.Context) (string, error)
	GetMeteringArchive(ctx context.Context, cfg *config.Config) ([]archive.Entry, error)
	SaveMeteringArchive(ctx context.Context, cfg *config.Config, entries []archive.Entry) error
}

// Registry is the fixed capability collection the event loop is built
// from: one concrete implementation per group, composed by value. There
// is exactly one of each — no fan-out, no hook chaining — consistent
// with §5's single-threaded cooperative scheduling model.
type Registry struct {
	Usage       UsageSource
	CSP         CSP
	Cache       CacheStore
	CSPConfig   CSPConfigStore
	Archive     ArchiveStore
	Defaults    Defaults
}
