// Package memory is a process-local reference implementation of the
// cache, csp_config, and archive storage hook groups, grounded on
// csp_billing_adapter's memory_cache.py/memory_csp_config.py: a module-
// level dict merged on update, returned as a copy on get. Suitable for
// local runs and tests; not for a multi-replica deployment, where
// internal/plugins/redisstore should be used instead.
package memory

import (
	"context"
	"sync"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/archive"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cache"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspconfig"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/logger"
)

// CacheStore is an in-process hooks.CacheStore.
type CacheStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewCacheStore() *CacheStore {
	return &CacheStore{}
}

func (s *CacheStore) GetCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug().Msg("retrieved in-memory cache content")
	if s.cache == nil {
		return nil, nil
	}
	c := *s.cache
	return &c, nil
}

func (s *CacheStore) SaveCache(ctx context.Context, cfg *config.Config, c *cache.Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *c
	s.cache = &saved
	logger.Debug().Msg("saved in-memory cache content")
	return nil
}

func (s *CacheStore) UpdateCache(ctx context.Context, cfg *config.Config, patch *cache.Cache, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if replace || s.cache == nil {
		saved := *patch
		s.cache = &saved
	} else {
		s.cache.Merge(patch)
	}
	logger.Debug().Msg("updated in-memory cache content")
	return nil
}

// CSPConfigStore is an in-process hooks.CSPConfigStore.
type CSPConfigStore struct {
	mu  sync.Mutex
	csp *cspconfig.CSPConfig
}

func NewCSPConfigStore() *CSPConfigStore {
	return &CSPConfigStore{}
}

func (s *CSPConfigStore) GetCSPConfig(ctx context.Context, cfg *config.Config) (*cspconfig.CSPConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug().Msg("retrieved in-memory csp_config content")
	if s.csp == nil {
		return nil, nil
	}
	c := *s.csp
	return &c, nil
}

func (s *CSPConfigStore) SaveCSPConfig(ctx context.Context, cfg *config.Config, c *cspconfig.CSPConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *c
	s.csp = &saved
	logger.Debug().Msg("saved in-memory csp_config content")
	return nil
}

func (s *CSPConfigStore) UpdateCSPConfig(ctx context.Context, cfg *config.Config, patch *cspconfig.CSPConfig, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if replace || s.csp == nil {
		saved := *patch
		s.csp = &saved
	} else {
		s.csp.Merge(patch)
	}
	logger.Debug().Msg("updated in-memory csp_config content")
	return nil
}

// ArchiveStore is an in-process hooks.ArchiveStore.
type ArchiveStore struct {
	mu       sync.Mutex
	location string
	entries  []archive.Entry
}

// NewArchiveStore builds an ArchiveStore reporting location from
// GetArchiveLocation (spec.md's archive_location field on csp_config).
func NewArchiveStore(location string) *ArchiveStore {
	return &ArchiveStore{location: location}
}

func (s *ArchiveStore) GetArchiveLocation(ctx context.Context) (string, error) {
	return s.location, nil
}

func (s *ArchiveStore) GetMeteringArchive(ctx context.Context, cfg *config.Config) ([]archive.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]archive.Entry(nil), s.entries...), nil
}

func (s *ArchiveStore) SaveMeteringArchive(ctx context.Context, cfg *config.Config, entries []archive.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]archive.Entry(nil), entries...)
	return nil
}
