package di

import (
	"io"
	"time"

	"github.com/goliatone/go-user-cache/cache"
	"github.com/goliatone/go-user-cache/pkg/config"
	"github.com/goliatone/go-user-cache/pkg/countcache"
	"github.com/goliatone/go-user-cache/usercache"
	"github.com/goliatone/go-user-cache/users"
	"github.com/sirupsen/logrus"
)

// Container provides dependency injection for cache related components.
// It owns the cache service and key serializer shared by every cached
// service it hands out.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	config        cache.Config
	countTTL      time.Duration
	logger        logrus.FieldLogger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger passed to the cache backend and cached services.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCountTTL sets the lifetime of cached user counts.
func WithCountTTL(ttl time.Duration) Option {
	return func(c *Container) {
		c.countTTL = ttl
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Container) {
		if serializer != nil {
			c.keySerializer = serializer
		}
	}
}

// NewContainer creates a DI container, building the cache backend selected
// by cfg.Backend.
func NewContainer(cfg cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        cfg,
		countTTL:      countcache.DefaultTTL,
		logger:        discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cacheService, err := cache.NewCacheService(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.cacheService = cacheService

	return c, nil
}

// NewContainerWithDefaults creates a DI container backed by the in-memory cache.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// NewContainerFromConfig creates a DI container from the loaded application configuration.
func NewContainerFromConfig(cfg *config.Config, logger logrus.FieldLogger) (*Container, error) {
	return NewContainer(cfg.Cache, WithLogger(logger), WithCountTTL(cfg.Count.TTL))
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewUserService wraps store with read-through caching on the shared cache service.
func (c *Container) NewUserService(store users.Store) *usercache.CachedService {
	return usercache.New(store, c.cacheService,
		usercache.WithKeySerializer(c.keySerializer),
		usercache.WithLogger(c.logger),
	)
}

// NewCountCache caches the total reported by counter for the configured TTL.
func (c *Container) NewCountCache(counter countcache.Counter) *countcache.Cache {
	return countcache.New(counter, c.cacheService, c.countTTL, c.logger,
		countcache.WithKeySerializer(c.keySerializer),
	)
}

// Close releases backend connections. It is a no-op for the in-memory backend.
func (c *Container) Close() error {
	if closer, ok := c.cacheService.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
