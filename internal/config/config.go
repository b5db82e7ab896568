// Package config defines service configuration and its loading layers.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config contains process configuration. Keys are flat so every field can be
// set from the environment.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the prewarm job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of prewarm workers.
	WorkerCount int `koanf:"worker_count"`

	// CacheBackend is memory, redis or none.
	CacheBackend string `koanf:"cache_backend"`
	// CacheMaxEntries bounds the in-memory cache.
	CacheMaxEntries int `koanf:"cache_max_entries"`
	// CacheTTL is how long a Redis hash lives after its last write.
	CacheTTL time.Duration `koanf:"cache_ttl"`
	// RedisURL is used when CacheBackend is redis.
	RedisURL string `koanf:"redis_url"`

	// MaxRangeDays caps chart and prewarm ranges.
	MaxRangeDays int `koanf:"max_range_days"`
	// MaxSamplesPerUser caps stored series; zero is unbounded.
	MaxSamplesPerUser int `koanf:"max_samples_per_user"`

	// Trend smoothing.
	TrendLookbackDays float64 `koanf:"trend_lookback_days"`
	TrendHalfLifeDays float64 `koanf:"trend_half_life_days"`
	TrendStaleFactor  float64 `koanf:"trend_stale_factor"`

	// Body score weighting and age effect.
	FFMIWeight               float64 `koanf:"ffmi_weight"`
	BodyFatWeight            float64 `koanf:"body_fat_weight"`
	AgeReference             int     `koanf:"age_reference"`
	AgeBodyFatShiftPerDecade float64 `koanf:"age_body_fat_shift_per_decade"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		QueueSize:                1024,
		WorkerCount:              runtime.NumCPU(),
		CacheBackend:             CacheMemory,
		CacheMaxEntries:          50_000,
		CacheTTL:                 24 * time.Hour,
		RedisURL:                 "redis://localhost:6379/0",
		MaxRangeDays:             731,
		TrendLookbackDays:        30,
		TrendHalfLifeDays:        7,
		TrendStaleFactor:         4,
		FFMIWeight:               0.5,
		BodyFatWeight:            0.5,
		AgeReference:             30,
		AgeBodyFatShiftPerDecade: 1.0,
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxRangeDays <= 0:
		return fmt.Errorf("%w: max_range_days must be positive", ErrInvalidConfig)
	case c.TrendLookbackDays <= 0 || c.TrendHalfLifeDays <= 0 || c.TrendStaleFactor <= 0:
		return fmt.Errorf("%w: trend settings must be positive", ErrInvalidConfig)
	case c.FFMIWeight < 0 || c.BodyFatWeight < 0 || c.FFMIWeight+c.BodyFatWeight == 0:
		return fmt.Errorf("%w: score weights must be non-negative and not both zero", ErrInvalidConfig)
	case c.AgeReference < 0 || c.AgeBodyFatShiftPerDecade < 0:
		return fmt.Errorf("%w: age settings must be non-negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.CacheBackend) {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
