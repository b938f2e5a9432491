package cache

import (
	"github.com/goliatone/go-user-cache/internal/cacheinfra"
	"github.com/sirupsen/logrus"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// RedisConfig holds the connection settings of the Redis backend.
type RedisConfig = cacheinfra.RedisConfig

// Supported values for Config.Backend.
const (
	BackendMemory = cacheinfra.BackendMemory
	BackendRedis  = cacheinfra.BackendRedis
)

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// NewCacheService constructs the backend selected by cfg.Backend.
// logger may be nil.
func NewCacheService(cfg Config, logger logrus.FieldLogger) (CacheService, error) {
	switch cfg.Backend {
	case BackendRedis:
		svc, err := cacheinfra.NewRedisService(cfg, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		svc, err := cacheinfra.NewSturdycService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}
