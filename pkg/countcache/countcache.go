package countcache

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-user-cache/cache"
	"github.com/sirupsen/logrus"
)

const (
	// Namespace keeps counts apart from the user records namespace, so user
	// mutations do not reset them.
	Namespace = "userCount"
	// Method names the count entry. Keys are built from it and the TTL, so
	// caches with different staleness bounds never share an entry.
	Method = "SelectUsersCount"
	// DefaultTTL bounds how stale a cached count can get.
	DefaultTTL = time.Hour
)

// Counter is the source of the total, usually a users.Service.
type Counter interface {
	SelectUsersCount(ctx context.Context) (int64, error)
}

// Cache serves the user count from the cache and refreshes it from the
// Counter once the entry expires.
type Cache struct {
	source     Counter
	cache      cache.CacheService
	serializer cache.KeySerializer
	ttl        time.Duration
	key        string
	logger     logrus.FieldLogger
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeySerializer replaces the serializer used to build the entry key.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Cache) {
		if serializer != nil {
			c.serializer = serializer
		}
	}
}

// New builds a count cache. A non-positive ttl uses DefaultTTL and a nil
// logger discards entries.
func New(source Counter, cacheService cache.CacheService, ttl time.Duration, logger logrus.FieldLogger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	c := &Cache{
		source:     source,
		cache:      cacheService,
		serializer: cache.NewDefaultKeySerializer(),
		ttl:        ttl,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.key = c.serializer.SerializeKey(Method, c.ttl)
	return c
}

// TTL reports how long a fetched count is kept.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key reports the entry key inside Namespace.
func (c *Cache) Key() string {
	return c.key
}

// Count returns the cached total, asking the Counter on a miss. Cache
// failures are logged and never hide the source value.
func (c *Cache) Count(ctx context.Context) (int64, error) {
	log := c.logger.WithFields(logrus.Fields{"namespace": Namespace, "key": c.key})

	total, found, err := cache.Get[int64](ctx, c.cache, Namespace, c.key)
	if err != nil {
		log.WithError(err).Warn("count cache read failed")
	}
	if found {
		log.Debug("count cache hit")
		return total, nil
	}

	total, err = c.source.SelectUsersCount(ctx)
	if err != nil {
		return 0, err
	}

	if err := c.cache.SetWithTTL(ctx, Namespace, c.key, total, c.ttl); err != nil {
		log.WithError(err).Warn("count cache write failed")
	} else {
		log.WithField("ttl", c.ttl.String()).Debug("count cache populated")
	}
	return total, nil
}

// Invalidate drops the cached total so the next Count reads the source.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, Namespace, c.key)
}
