package interp

import (
	"math"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// Default trend configuration constants.
const (
	defaultLookbackDays = 30
	defaultHalfLifeDays = 7
	defaultStaleFactor  = 4
)

// TrendOption applies a configuration option to the TrendEstimator.
type TrendOption func(*TrendEstimator)

// WithLookbackDays sets how far back, in days, samples contribute.
func WithLookbackDays(days float64) TrendOption {
	return func(t *TrendEstimator) {
		if days > 0 {
			t.lookbackDays = days
		}
	}
}

// WithHalfLifeDays sets the decay constant of the sample weights.
func WithHalfLifeDays(days float64) TrendOption {
	return func(t *TrendEstimator) {
		if days > 0 {
			t.halfLifeDays = days
		}
	}
}

// WithStaleFactor sets the multiple of the half-life past which the newest
// contributing sample forces low confidence.
func WithStaleFactor(factor float64) TrendOption {
	return func(t *TrendEstimator) {
		if factor > 0 {
			t.staleFactor = factor
		}
	}
}

// TrendEstimator smooths a weight series with an exponentially weighted
// moving average. It holds configuration only and is safe to share.
type TrendEstimator struct {
	lookbackDays float64
	halfLifeDays float64
	staleFactor  float64
}

// NewTrendEstimator creates a trend estimator with configuration options.
func NewTrendEstimator(opts ...TrendOption) *TrendEstimator {
	t := &TrendEstimator{
		lookbackDays: defaultLookbackDays,
		halfLifeDays: defaultHalfLifeDays,
		staleFactor:  defaultStaleFactor,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Params lists every setting that affects Estimate, in a fixed order.
func (t *TrendEstimator) Params() []float64 {
	return []float64{t.lookbackDays, t.halfLifeDays, t.staleFactor}
}

// Estimate returns the trend value on date using the samples of c that fall
// within the lookback window ending on date. With no sample in the window it
// falls back to c.Estimate so trend and raw never disagree about having data.
func (t *TrendEstimator) Estimate(date time.Time, c *Context) (model.InterpolatedMetric, bool) {
	day := model.Day(date)

	// end is one past the last point on or before day.
	end := c.search(day)
	if end < len(c.points) && c.points[end].day.Equal(day) {
		end++
	}

	var weightSum, valueSum float64
	start := end
	for start > 0 {
		age := model.DaysBetween(c.points[start-1].day, day)
		if age > t.lookbackDays {
			break
		}
		w := math.Exp(-age / t.halfLifeDays)
		weightSum += w
		valueSum += w * c.points[start-1].value
		start--
	}
	if start == end || weightSum == 0 {
		return c.Estimate(day)
	}

	newest := c.points[end-1]
	staleness := model.DaysBetween(newest.day, day)
	confidence := ConfidenceForGap(staleness)
	if staleness > t.halfLifeDays*t.staleFactor {
		confidence = model.ConfidenceLow
	}

	return model.InterpolatedMetric{
		Value:          valueSum / weightSum,
		IsInterpolated: !newest.day.Equal(day),
		IsLastKnown:    end == len(c.points) && !newest.day.Equal(day),
		Confidence:     confidence,
	}, true
}

// Resolve wraps Estimate in a tagged result.
func (t *TrendEstimator) Resolve(date time.Time, c *Context) model.Resolved {
	m, ok := t.Estimate(date, c)
	return model.NewResolved(c.kind, date, m, ok)
}

// Range resolves the trend for every day in [from, to].
func (t *TrendEstimator) Range(from, to time.Time, c *Context) []model.ChartPoint {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil
	}
	out := make([]model.ChartPoint, 0, int(model.DaysBetween(from, to))+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, t.Resolve(d, c))
	}
	return out
}

// TrendWeight builds a weight context over series and evaluates the default
// trend on date.
func TrendWeight(date time.Time, series []model.MetricSample) (model.InterpolatedMetric, bool) {
	return NewTrendEstimator().Estimate(date, Build(model.KindWeight, series))
}
