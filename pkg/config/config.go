package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-user-cache/cache"
	"github.com/goliatone/go-user-cache/pkg/bunstore"
	"github.com/goliatone/go-user-cache/pkg/logging"
)

// DefaultCountTTL matches the lifetime of cached user counts.
const DefaultCountTTL = time.Hour

// Config is the root configuration of the user cache service.
type Config struct {
	Cache    cache.Config    `mapstructure:"cache"`
	Database bunstore.Config `mapstructure:"database"`
	Log      logging.Config  `mapstructure:"log"`
	Count    CountConfig     `mapstructure:"count"`
}

// CountConfig controls the cached user count.
type CountConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Cache:    cache.DefaultConfig(),
		Database: bunstore.DefaultConfig(),
		Log:      logging.DefaultConfig(),
		Count:    CountConfig{TTL: DefaultCountTTL},
	}
}

var logLevels = []any{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}

// Validate checks every section and reports the first failing one.
func (c Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.Log, validation.By(func(value any) error {
			lc, _ := value.(logging.Config)
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level, validation.Required, validation.In(logLevels...)),
				validation.Field(&lc.MaxSize, validation.Min(0)),
				validation.Field(&lc.MaxBackups, validation.Min(0)),
			)
		})),
		validation.Field(&c.Count, validation.By(func(value any) error {
			cc, _ := value.(CountConfig)
			return validation.ValidateStruct(&cc,
				validation.Field(&cc.TTL, validation.Required, validation.Min(time.Second)),
			)
		})),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}
