// Package cache defines the estimation cache contract and its in-memory
// implementation. Entries are grouped by the fingerprint of the series they
// were computed from so a changed series is invalidated in one call.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// Key addresses one cached answer.
type Key struct {
	Series Fingerprint
	Query  string
}

func (k Key) String() string { return k.Series.String() + "/" + k.Query }

// Entry is a cached answer. Found is false for a cached "no data" result.
type Entry struct {
	Found  bool                     `json:"found"`
	Metric model.InterpolatedMetric `json:"metric"`
	Score  *model.BodyScoreResult   `json:"score,omitempty"`
}

// Cache stores estimates and scores keyed by content fingerprints. Entries are
// never patched: when a series changes its old fingerprint is invalidated.
type Cache interface {
	// Get returns the entry for key. ok is false on a miss.
	Get(ctx context.Context, key Key) (Entry, bool, error)
	// Set stores e under key, replacing any previous value.
	Set(ctx context.Context, key Key, e Entry) error
	// Invalidate drops every entry stored under fp.
	Invalidate(ctx context.Context, fp Fingerprint) error
	// Purge drops everything.
	Purge(ctx context.Context) error
}

// EstimateQuery encodes the parameters of a single-day estimate. params is
// the fingerprint of the estimator settings the answer depends on, zero when
// it depends on none.
func EstimateQuery(kind model.MetricKind, mode model.EstimateMode, params Fingerprint, date time.Time) string {
	return fmt.Sprintf("est:%s:%s:%s:%s", kind, mode, params, model.Day(date).Format(model.DayLayout))
}

// ScoreQuery encodes the parameters of a body score calculation. params is
// the fingerprint of the calculator settings.
func ScoreQuery(params Fingerprint, date time.Time) string {
	return fmt.Sprintf("score:%s:%d", params, date.Year())
}
