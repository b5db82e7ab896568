package engine

import (
	"github.com/okian/bodymetrics/internal/domain/cache"
	"github.com/okian/bodymetrics/internal/domain/interp"
	"github.com/okian/bodymetrics/internal/domain/scoring"
	"github.com/okian/bodymetrics/pkg/logger"
)

// Default engine configuration constants.
const defaultMaxRangeDays = 731

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCache sets the estimation cache. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithTrendEstimator replaces the default trend estimator.
func WithTrendEstimator(t *interp.TrendEstimator) Option {
	return func(e *Engine) {
		if t != nil {
			e.trend = t
		}
	}
}

// WithCalculator replaces the default body score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calc = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMaxRangeDays bounds the number of days Chart and Warm walk in one call.
func WithMaxRangeDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.maxRangeDays = days
		}
	}
}
