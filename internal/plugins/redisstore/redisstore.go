// Package redisstore persists the cache, csp_config, and archive
// documents in Redis as JSON blobs under fixed keys, adapted from the
// teacher's internal/cache/redis.go Set/Get(ctx, key, value) idiom —
// generalized from TTL'd product/category caches to the adapter's
// three durable, no-expiry documents, since csp_config and cache must
// survive across ticks indefinitely, not be invalidated on write.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/archive"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cache"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/cspconfig"
)

const (
	cacheKey     = "csp_billing_adapter:cache"
	cspConfigKey = "csp_billing_adapter:csp_config"
	archiveKey   = "csp_billing_adapter:archive"
)

// Store wraps a go-redis client and implements the cache, csp_config,
// and archive hook groups against it.
type Store struct {
	client   *redis.Client
	location string
}

// New dials addr and verifies connectivity before returning. location
// is the value reported by GetArchiveLocation — the redis address
// doubles as the operator-visible pointer to where the archive lives.
func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{client: client, location: "redis://" + addr + "/" + archiveKey}, nil
}

func (s *Store) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *Store) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping satisfies health.Pingable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// --- cache document ---

func (s *Store) GetCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	var c cache.Cache
	found, err := s.get(ctx, cacheKey, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveCache(ctx context.Context, cfg *config.Config, c *cache.Cache) error {
	return s.set(ctx, cacheKey, c)
}

func (s *Store) UpdateCache(ctx context.Context, cfg *config.Config, patch *cache.Cache, replace bool) error {
	if replace {
		return s.set(ctx, cacheKey, patch)
	}

	current, err := s.GetCache(ctx, cfg)
	if err != nil {
		return err
	}
	if current == nil {
		return s.set(ctx, cacheKey, patch)
	}
	current.Merge(patch)
	return s.set(ctx, cacheKey, current)
}

// --- csp_config document ---

func (s *Store) GetCSPConfig(ctx context.Context, cfg *config.Config) (*cspconfig.CSPConfig, error) {
	var c cspconfig.CSPConfig
	found, err := s.get(ctx, cspConfigKey, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveCSPConfig(ctx context.Context, cfg *config.Config, c *cspconfig.CSPConfig) error {
	return s.set(ctx, cspConfigKey, c)
}

func (s *Store) UpdateCSPConfig(ctx context.Context, cfg *config.Config, patch *cspconfig.CSPConfig, replace bool) error {
	if replace {
		return s.set(ctx, cspConfigKey, patch)
	}

	current, err := s.GetCSPConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if current == nil {
		return s.set(ctx, cspConfigKey, patch)
	}
	current.Merge(patch)
	return s.set(ctx, cspConfigKey, current)
}

// --- archive document ---

func (s *Store) GetArchiveLocation(ctx context.Context) (string, error) {
	return s.location, nil
}

func (s *Store) GetMeteringArchive(ctx context.Context, cfg *config.Config) ([]archive.Entry, error) {
	var entries []archive.Entry
	_, err := s.get(ctx, archiveKey, &entries)
	return entries, err
}

func (s *Store) SaveMeteringArchive(ctx context.Context, cfg *config.Config, entries []archive.Entry) error {
	return s.set(ctx, archiveKey, entries)
}
