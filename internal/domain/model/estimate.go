package model

import (
	"fmt"
	"time"
)

// Confidence is a qualitative tag for how far an estimate sits from a real
// measurement. The zero value means no confidence was assigned.
type Confidence int

// Confidence levels.
const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(b []byte) error {
	switch string(b) {
	case "high":
		*c = ConfidenceHigh
	case "medium":
		*c = ConfidenceMedium
	case "low":
		*c = ConfidenceLow
	case "none", "":
		*c = ConfidenceNone
	default:
		return fmt.Errorf("unknown confidence %q", string(b))
	}
	return nil
}

// InterpolatedMetric is the answer to "what is the value on date D".
type InterpolatedMetric struct {
	Value float64 `json:"value"`
	// IsInterpolated is true when D had no direct sample.
	IsInterpolated bool `json:"is_interpolated"`
	// IsLastKnown is true when D is outside the sampled range and Value is a
	// flat hold of the nearest sample.
	IsLastKnown bool       `json:"is_last_known"`
	Confidence  Confidence `json:"confidence"`
}

// Resolution tags how a value was obtained.
type Resolution string

// Resolutions, from most to least trustworthy.
const (
	ResolutionMeasured     Resolution = "measured"
	ResolutionInterpolated Resolution = "interpolated"
	ResolutionLastKnown    Resolution = "last_known"
	ResolutionUnknown      Resolution = "unknown"
)

// Resolution classifies m.
func (m InterpolatedMetric) Resolution() Resolution {
	switch {
	case m.IsLastKnown:
		return ResolutionLastKnown
	case m.IsInterpolated:
		return ResolutionInterpolated
	default:
		return ResolutionMeasured
	}
}

// Resolved is the tagged result of resolving one metric on one day. Metric is
// nil exactly when Resolution is ResolutionUnknown.
type Resolved struct {
	Kind       MetricKind          `json:"kind"`
	Date       time.Time           `json:"date"`
	Resolution Resolution          `json:"resolution"`
	Metric     *InterpolatedMetric `json:"metric,omitempty"`
}

// NewResolved builds a Resolved from an estimate lookup.
func NewResolved(kind MetricKind, date time.Time, m InterpolatedMetric, ok bool) Resolved {
	r := Resolved{Kind: kind, Date: Day(date), Resolution: ResolutionUnknown}
	if ok {
		r.Resolution = m.Resolution()
		r.Metric = &m
	}
	return r
}

// Known reports whether a value is available.
func (r Resolved) Known() bool { return r.Metric != nil }

// ValuePtr returns the value or nil when unknown.
func (r Resolved) ValuePtr() *float64 {
	if r.Metric == nil {
		return nil
	}
	v := r.Metric.Value
	return &v
}

// EstimateMode selects raw or smoothed values.
type EstimateMode string

// Estimate modes.
const (
	ModeRaw   EstimateMode = "raw"
	ModeTrend EstimateMode = "trend"
)

// ParseMode converts a string into an EstimateMode; empty means raw.
func ParseMode(s string) (EstimateMode, error) {
	switch EstimateMode(s) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeTrend:
		return ModeTrend, nil
	default:
		return "", fmt.Errorf("unknown estimate mode %q", s)
	}
}

// ChartPoint is one day of a chart series.
type ChartPoint = Resolved
