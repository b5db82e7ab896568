// Package interp estimates metric values for arbitrary days from sparse,
// date-sorted sample series.
package interp

import (
	"sort"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// Gap thresholds, in days, for confidence banding. Both bounds are inclusive.
const (
	HighConfidenceMaxDays   = 7
	MediumConfidenceMaxDays = 30
)

// ConfidenceForGap maps a gap or staleness in days to a confidence level.
func ConfidenceForGap(days float64) model.Confidence {
	switch {
	case days <= HighConfidenceMaxDays:
		return model.ConfidenceHigh
	case days <= MediumConfidenceMaxDays:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

type point struct {
	day   time.Time
	value float64
}

// Context is an immutable lookup structure over one metric's series. It is
// safe for concurrent readers; rebuild it when the series changes.
type Context struct {
	kind   model.MetricKind
	points []point
}

// Build copies the values of kind present in series. series must already be
// sorted ascending by date; Build does not sort. Samples that carry no value
// for kind are skipped.
func Build(kind model.MetricKind, series []model.MetricSample) *Context {
	c := &Context{kind: kind, points: make([]point, 0, len(series))}
	for i := range series {
		v, ok := kind.Value(series[i])
		if !ok {
			continue
		}
		c.points = append(c.points, point{day: model.Day(series[i].Date), value: v})
	}
	return c
}

// Kind returns the metric kind the context was built for.
func (c *Context) Kind() model.MetricKind { return c.kind }

// search returns the index of the first point on or after day.
func (c *Context) search(day time.Time) int {
	return sort.Search(len(c.points), func(i int) bool {
		return !c.points[i].day.Before(day)
	})
}

// Estimate returns the value of the series on date. ok is false only when
// the series is empty.
func (c *Context) Estimate(date time.Time) (model.InterpolatedMetric, bool) {
	if len(c.points) == 0 {
		return model.InterpolatedMetric{}, false
	}
	day := model.Day(date)
	i := c.search(day)

	if i < len(c.points) && c.points[i].day.Equal(day) {
		return model.InterpolatedMetric{
			Value:      c.points[i].value,
			Confidence: model.ConfidenceHigh,
		}, true
	}

	hasPrev, hasNext := i > 0, i < len(c.points)
	switch {
	case hasPrev && hasNext:
		prev, next := c.points[i-1], c.points[i]
		span := model.DaysBetween(prev.day, next.day)
		frac := model.DaysBetween(prev.day, day) / span
		return model.InterpolatedMetric{
			Value:          prev.value + (next.value-prev.value)*frac,
			IsInterpolated: true,
			Confidence:     ConfidenceForGap(span),
		}, true
	case hasPrev:
		prev := c.points[i-1]
		return model.InterpolatedMetric{
			Value:          prev.value,
			IsInterpolated: true,
			IsLastKnown:    true,
			Confidence:     ConfidenceForGap(model.DaysBetween(prev.day, day)),
		}, true
	default:
		next := c.points[i]
		return model.InterpolatedMetric{
			Value:          next.value,
			IsInterpolated: true,
			IsLastKnown:    true,
			Confidence:     ConfidenceForGap(model.DaysBetween(day, next.day)),
		}, true
	}
}

// Resolve wraps Estimate in a tagged result.
func (c *Context) Resolve(date time.Time) model.Resolved {
	m, ok := c.Estimate(date)
	return model.NewResolved(c.kind, date, m, ok)
}

// Range resolves every day in [from, to]. It returns nil when to is before from.
func (c *Context) Range(from, to time.Time) []model.ChartPoint {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil
	}
	out := make([]model.ChartPoint, 0, int(model.DaysBetween(from, to))+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, c.Resolve(d))
	}
	return out
}
