// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"
	"time"
)

// DayLayout is the wire format for calendar days.
const DayLayout = "2006-01-02"

const hoursPerDay = 24

// MetricKind names one measurable series.
type MetricKind string

// Supported metric kinds.
const (
	KindWeight  MetricKind = "weight"
	KindBodyFat MetricKind = "body_fat"
)

// AllKinds lists every supported metric kind in a stable order.
var AllKinds = []MetricKind{KindWeight, KindBodyFat}

// Valid reports whether k is a supported kind.
func (k MetricKind) Valid() bool {
	return k == KindWeight || k == KindBodyFat
}

// Value extracts the kind's value from s, if the sample carries one.
func (k MetricKind) Value(s MetricSample) (float64, bool) { //nolint:gocritic // hugeParam: samples are small value types
	switch k {
	case KindWeight:
		if s.WeightKg != nil {
			return *s.WeightKg, true
		}
	case KindBodyFat:
		if s.BodyFatPercent != nil {
			return *s.BodyFatPercent, true
		}
	}
	return 0, false
}

// ParseKind converts a string into a MetricKind.
func ParseKind(s string) (MetricKind, error) {
	k := MetricKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown metric kind %q", s)
	}
	return k, nil
}

// SourceKind tags where a sample came from.
type SourceKind string

// Sample sources.
const (
	SourceManual       SourceKind = "manual"
	SourceHealthImport SourceKind = "health_import"
	SourceIntegration  SourceKind = "integration"
)

// Source identifies the origin of a sample. IntegrationID is only set for
// SourceIntegration.
type Source struct {
	Kind          SourceKind `json:"kind"`
	IntegrationID string     `json:"integration_id,omitempty"`
}

// MetricSample is one directly measured observation.
type MetricSample struct {
	Date           time.Time `json:"date"`
	WeightKg       *float64  `json:"weight_kg,omitempty"`
	BodyFatPercent *float64  `json:"body_fat_percent,omitempty"`
	Source         Source    `json:"source"`
}

// Day truncates t to midnight UTC of its calendar date. The calendar date is
// read in t's own location so a late-evening local entry keeps its day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b time.Time) float64 {
	return Day(b).Sub(Day(a)).Hours() / hoursPerDay
}

// SortSamples orders samples ascending by day in place.
func SortSamples(samples []MetricSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return Day(samples[i].Date).Before(Day(samples[j].Date))
	})
}

// Float returns a pointer to v. Handy for building optional sample fields.
func Float(v float64) *float64 { return &v }
