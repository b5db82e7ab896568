// Package engine wires interpolation, trend smoothing and scoring behind an
// estimation cache. An Engine is an explicit instance; it keeps no package
// state and is safe for concurrent use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/bodymetrics/internal/domain/cache"
	"github.com/okian/bodymetrics/internal/domain/interp"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
	"github.com/okian/bodymetrics/pkg/logger"
	"github.com/okian/bodymetrics/pkg/metrics"
)

// Engine answers estimate, chart and score queries over caller-supplied
// series. Series must be sorted ascending by date.
type Engine struct {
	cache        cache.Cache
	trend        *interp.TrendEstimator
	calc         *scoring.Calculator
	log          logger.Logger
	maxRangeDays int

	// Settings fingerprints folded into cache queries.
	trendParams cache.Fingerprint
	scoreParams cache.Fingerprint

	flight singleflight.Group
}

// New creates an engine with configuration options. Without WithCache it uses
// a bounded in-memory cache.
func New(opts ...Option) *Engine {
	e := &Engine{
		cache:        cache.NewMemory(cache.WithEvictHook(metrics.RecordCacheEvictions)),
		trend:        interp.NewTrendEstimator(),
		calc:         scoring.NewCalculator(),
		log:          logger.Get().Named("engine"),
		maxRangeDays: defaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.trendParams = cache.FingerprintParams("trend", e.trend.Params()...)
	e.scoreParams = cache.FingerprintParams("score", e.calc.Params()...)
	return e
}

// Cache returns the cache in use, or nil.
func (e *Engine) Cache() cache.Cache { return e.cache }

// MaxRangeDays returns the longest range Chart and Warm accept.
func (e *Engine) MaxRangeDays() int { return e.maxRangeDays }

// estimateQuery keys a day's estimate. Raw estimates depend on no setting.
func (e *Engine) estimateQuery(kind model.MetricKind, mode model.EstimateMode, date time.Time) string {
	var params cache.Fingerprint
	if mode == model.ModeTrend {
		params = e.trendParams
	}
	return cache.EstimateQuery(kind, mode, params, date)
}

func validate(kind model.MetricKind, mode model.EstimateMode) (model.EstimateMode, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	switch mode {
	case model.ModeRaw, model.ModeTrend:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	// Trend smoothing applies to weight only.
	if kind != model.KindWeight {
		mode = model.ModeRaw
	}
	return mode, nil
}

// compute evaluates one day against a prebuilt context.
func (e *Engine) compute(c *interp.Context, date time.Time, mode model.EstimateMode) cache.Entry {
	start := time.Now()
	var (
		m  model.InterpolatedMetric
		ok bool
	)
	if mode == model.ModeTrend {
		m, ok = e.trend.Estimate(date, c)
	} else {
		m, ok = c.Estimate(date)
	}
	metrics.RecordEstimateComputed(string(c.Kind()), string(mode), sinceMs(start))
	return cache.Entry{Found: ok, Metric: m}
}

// Estimate resolves kind on date. Only invalid arguments produce an error; a
// series without data resolves to model.ResolutionUnknown.
func (e *Engine) Estimate(ctx context.Context, kind model.MetricKind, series []model.MetricSample, date time.Time, mode model.EstimateMode) (model.Resolved, error) {
	mode, err := validate(kind, mode)
	if err != nil {
		return model.Resolved{}, err
	}
	key := cache.Key{
		Series: cache.FingerprintSeries(kind, series),
		Query:  e.estimateQuery(kind, mode, date),
	}
	if entry, ok := e.lookup(ctx, key); ok {
		return model.NewResolved(kind, date, entry.Metric, entry.Found), nil
	}

	v, _, _ := e.flight.Do(key.String(), func() (any, error) {
		entry := e.compute(interp.Build(kind, series), date, mode)
		e.store(ctx, key, entry)
		return entry, nil
	})
	entry := v.(cache.Entry)
	return model.NewResolved(kind, date, entry.Metric, entry.Found), nil
}

func (e *Engine) days(from, to time.Time) (time.Time, time.Time, int, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return from, to, 0, ErrInvalidRange
	}
	n := int(model.DaysBetween(from, to)) + 1
	if n > e.maxRangeDays {
		return from, to, 0, fmt.Errorf("%w: %d > %d", ErrRangeTooLarge, n, e.maxRangeDays)
	}
	return from, to, n, nil
}

// Chart resolves every day in [from, to] from one context build.
func (e *Engine) Chart(ctx context.Context, kind model.MetricKind, series []model.MetricSample, from, to time.Time, mode model.EstimateMode) ([]model.ChartPoint, error) {
	mode, err := validate(kind, mode)
	if err != nil {
		return nil, err
	}
	from, to, n, err := e.days(from, to)
	if err != nil {
		return nil, err
	}

	fp := cache.FingerprintSeries(kind, series)
	var c *interp.Context
	out := make([]model.ChartPoint, 0, n)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := cache.Key{Series: fp, Query: e.estimateQuery(kind, mode, d)}
		entry, ok := e.lookup(ctx, key)
		if !ok {
			if c == nil {
				c = interp.Build(kind, series)
			}
			entry = e.compute(c, d, mode)
			e.store(ctx, key, entry)
		}
		out = append(out, model.NewResolved(kind, d, entry.Metric, entry.Found))
	}
	metrics.RecordChartPoints(len(out))
	return out, nil
}

// Warm computes and stores every day in [from, to], stopping early when ctx
// is done. It returns the number of entries stored.
func (e *Engine) Warm(ctx context.Context, kind model.MetricKind, series []model.MetricSample, from, to time.Time, mode model.EstimateMode) (int, error) {
	mode, err := validate(kind, mode)
	if err != nil {
		return 0, err
	}
	from, to, _, err = e.days(from, to)
	if err != nil {
		return 0, err
	}
	if e.cache == nil {
		return 0, nil
	}

	fp := cache.FingerprintSeries(kind, series)
	c := interp.Build(kind, series)
	warmed := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return warmed, fmt.Errorf("warm %s/%s: %w", kind, mode, err)
		}
		key := cache.Key{Series: fp, Query: e.estimateQuery(kind, mode, d)}
		if err := e.cache.Set(ctx, key, e.compute(c, d, mode)); err != nil {
			metrics.RecordCacheError("set")
			return warmed, fmt.Errorf("warm %s/%s: %w", kind, mode, err)
		}
		warmed++
	}
	return warmed, nil
}

// Score calculates the body score for in as of date.
func (e *Engine) Score(ctx context.Context, in model.BodyScoreInput, date time.Time) (model.BodyScoreResult, error) {
	if !in.IsReadyForCalculation() {
		metrics.RecordScoreIncomplete()
		_, err := e.calc.Calculate(in, date)
		return model.BodyScoreResult{}, err
	}

	key := cache.Key{Series: cache.FingerprintInput(in), Query: cache.ScoreQuery(e.scoreParams, date)}
	if entry, ok := e.lookup(ctx, key); ok && entry.Score != nil {
		return *entry.Score, nil
	}

	start := time.Now()
	res, err := e.calc.Calculate(in, date)
	if err != nil {
		return model.BodyScoreResult{}, err
	}
	metrics.RecordScoreComputed(sinceMs(start))
	e.store(ctx, key, cache.Entry{Found: true, Score: &res})
	return res, nil
}

// ScoreOn resolves weight with mode and body fat raw on date, then scores
// them with profile. The resolved inputs are returned even when the score
// fails with scoring.ErrIncompleteInput.
func (e *Engine) ScoreOn(ctx context.Context, profile *model.Profile, series []model.MetricSample, date time.Time, mode model.EstimateMode) (model.ScoredDay, error) {
	day := model.ScoredDay{Date: model.Day(date)}

	var err error
	if day.Weight, err = e.Estimate(ctx, model.KindWeight, series, date, mode); err != nil {
		return day, err
	}
	if day.BodyFat, err = e.Estimate(ctx, model.KindBodyFat, series, date, model.ModeRaw); err != nil {
		return day, err
	}

	in := model.BodyScoreInput{
		WeightKg:       day.Weight.ValuePtr(),
		BodyFatPercent: day.BodyFat.ValuePtr(),
	}
	if profile != nil {
		if profile.Sex.Valid() {
			sex := profile.Sex
			in.Sex = &sex
		}
		if profile.BirthYear > 0 {
			year := profile.BirthYear
			in.BirthYear = &year
		}
		if profile.HeightCm > 0 {
			in.HeightCm = model.Float(profile.HeightCm)
		}
	}

	day.Result, err = e.Score(ctx, in, date)
	return day, err
}

// Invalidate drops the cached estimates of every kind computed from series.
// Call it with the series as it was before a change.
func (e *Engine) Invalidate(ctx context.Context, series []model.MetricSample) error {
	if e.cache == nil {
		return nil
	}
	var errs []error
	for _, kind := range model.AllKinds {
		fp := cache.FingerprintSeries(kind, series)
		if err := e.cache.Invalidate(ctx, fp); err != nil {
			metrics.RecordCacheError("invalidate")
			errs = append(errs, fmt.Errorf("invalidate %s %s: %w", kind, fp, err))
			continue
		}
		metrics.RecordCacheInvalidation()
	}
	return errors.Join(errs...)
}

func (e *Engine) lookup(ctx context.Context, key cache.Key) (cache.Entry, bool) {
	if e.cache == nil {
		return cache.Entry{}, false
	}
	entry, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheError("get")
		e.log.Warn(ctx, "cache get failed, computing", logger.String("key", key.String()), logger.Error(err))
		return cache.Entry{}, false
	}
	if ok {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()
	}
	return entry, ok
}

func (e *Engine) store(ctx context.Context, key cache.Key, entry cache.Entry) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, entry); err != nil {
		metrics.RecordCacheError("set")
		e.log.Warn(ctx, "cache set failed", logger.String("key", key.String()), logger.Error(err))
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
