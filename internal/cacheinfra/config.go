package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// Supported cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the configuration for the cache backends.
type Config struct {
	// Backend selects the store: BackendMemory (sturdyc) or BackendRedis.
	Backend string `mapstructure:"backend"`

	// Capacity defines the maximum number of entries that the in-memory cache can store.
	// Must be greater than 0.
	Capacity int `mapstructure:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int `mapstructure:"num_shards"`

	// TTL is the housekeeping time-to-live of in-memory entries. Consistency
	// comes from namespace invalidation, so this only bounds memory held by
	// entries nobody can reach anymore. Must be greater than 0.
	TTL time.Duration `mapstructure:"ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// EarlyRefresh configures background refreshes of hot entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig `mapstructure:"early_refresh"`

	// MissingRecordStorage lets sturdyc remember fetches that returned sturdyc.ErrNotFound.
	MissingRecordStorage bool `mapstructure:"missing_record_storage"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`

	// Redis is only read when Backend is BackendRedis.
	Redis RedisConfig `mapstructure:"redis"`
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `mapstructure:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay"`
}

// RedisConfig controls how the Redis backend connects to the server.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// EntryTTL is applied to every entry written without an explicit TTL.
	// Zero keeps entries until the namespace is cleared.
	EntryTTL time.Duration `mapstructure:"entry_ttl"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
		Redis: RedisConfig{
			Addr:         "127.0.0.1:6379",
			PoolSize:     8,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			EntryTTL:     24 * time.Hour,
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid. Failures are
// reported as a validation error carrying one entry per offending field.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EarlyRefresh, validation.By(validateEarlyRefresh)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.Redis, validation.When(c.Backend == BackendRedis, validation.By(validateRedis))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache configuration")
	}
	return nil
}

func validateEarlyRefresh(value any) error {
	er, _ := value.(*EarlyRefreshConfig)
	if er == nil {
		return nil
	}
	return validation.ValidateStruct(er,
		validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

func validateRedis(value any) error {
	rc, ok := value.(RedisConfig)
	if !ok {
		return nil
	}
	return validation.ValidateStruct(&rc,
		validation.Field(&rc.Addr, validation.Required),
		validation.Field(&rc.DB, validation.Min(0)),
		validation.Field(&rc.PoolSize, validation.Min(0)),
		validation.Field(&rc.EntryTTL, validation.Min(time.Duration(0))),
	)
}
