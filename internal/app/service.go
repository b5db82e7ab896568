// Package service wires the store, engine and prewarm workers into the
// operations served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bodymetrics/internal/adapters/mq/queue"
	"github.com/okian/bodymetrics/internal/adapters/mq/worker"
	"github.com/okian/bodymetrics/internal/adapters/repository"
	"github.com/okian/bodymetrics/internal/domain/cache"
	"github.com/okian/bodymetrics/internal/domain/engine"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/pkg/logger"
	"github.com/okian/bodymetrics/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize = 1024
	stopTimeout      = 10 * time.Second
)

// Service owns the sample store and the engine instance, and runs the
// prewarm worker pool between Start and Stop.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	engine *engine.Engine
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	cancel context.CancelFunc

	// Used only when no engine is supplied.
	cache    cache.Cache
	cacheSet bool

	workerCount int
	queueSize   int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of prewarm workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the prewarm queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCache sets the cache of the default engine. A nil cache disables
// caching. It is ignored when WithEngine is given.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheSet = true
	}
}

// WithStore sets the sample and profile store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithEngine sets the engine instance.
func WithEngine(e *engine.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. It is usable for reads and writes right away;
// Prewarm needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.engine == nil {
		var eopts []engine.Option
		if s.cacheSet {
			eopts = append(eopts, engine.WithCache(s.cache))
		}
		s.engine = engine.New(eopts...)
	}
	return s
}

// Engine returns the engine instance.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Start creates the prewarm queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Workers outlive ctx so Stop can drain the queue; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, s.engine)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "bodymetrics service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
	)
	return nil
}

// Stop closes the queue and waits for the workers to finish every queued
// prewarm job, up to a timeout.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping bodymetrics service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "bodymetrics service stopped")
}

// RecordSample stores a sample and drops the cache entries of the series it
// replaced.
func (s *Service) RecordSample(ctx context.Context, userID string, sample model.MetricSample) error { //nolint:gocritic // hugeParam: samples are small value types
	before, err := s.store.UpsertSample(ctx, userID, sample)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID, before)
	return nil
}

// DeleteSample removes the sample on day and drops the cache entries of the
// series it replaced.
func (s *Service) DeleteSample(ctx context.Context, userID string, day time.Time) error {
	before, err := s.store.DeleteSample(ctx, userID, day)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID, before)
	return nil
}

// invalidate reclaims cache space. Entries are keyed by series content, so a
// failure here never serves stale values.
func (s *Service) invalidate(ctx context.Context, userID string, before []model.MetricSample) {
	if len(before) == 0 {
		return
	}
	if err := s.engine.Invalidate(ctx, before); err != nil {
		metrics.RecordErrorByComponent("service", "invalidate_failed")
		s.logger.Warn(ctx, "cache invalidation failed",
			logger.String("user_id", userID),
			logger.Error(err),
		)
	}
}

// SetProfile stores the user's profile.
func (s *Service) SetProfile(ctx context.Context, p model.Profile) error {
	return s.store.PutProfile(ctx, p)
}

// Profile returns the user's profile or repository.ErrNotFound.
func (s *Service) Profile(ctx context.Context, userID string) (model.Profile, error) {
	return s.store.Profile(ctx, userID)
}

// Series returns the user's samples sorted by day.
func (s *Service) Series(ctx context.Context, userID string) ([]model.MetricSample, error) {
	return s.store.Series(ctx, userID)
}

// Estimate resolves kind for the user on date.
func (s *Service) Estimate(ctx context.Context, userID string, kind model.MetricKind, date time.Time, mode model.EstimateMode) (model.Resolved, error) {
	series, err := s.store.Series(ctx, userID)
	if err != nil {
		return model.Resolved{}, err
	}
	return s.engine.Estimate(ctx, kind, series, date, mode)
}

// Chart resolves kind for the user on every day of [from, to].
func (s *Service) Chart(ctx context.Context, userID string, kind model.MetricKind, from, to time.Time, mode model.EstimateMode) ([]model.ChartPoint, error) {
	series, err := s.store.Series(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.Chart(ctx, kind, series, from, to, mode)
}

// Score computes the user's body score on date. A user without a profile
// gets scoring.ErrIncompleteInput naming the profile fields.
func (s *Service) Score(ctx context.Context, userID string, date time.Time, mode model.EstimateMode) (model.ScoredDay, error) {
	series, err := s.store.Series(ctx, userID)
	if err != nil {
		return model.ScoredDay{}, err
	}

	var profile *model.Profile
	p, err := s.store.Profile(ctx, userID)
	switch {
	case err == nil:
		profile = &p
	case !errors.Is(err, repository.ErrNotFound):
		return model.ScoredDay{}, err
	}

	return s.engine.ScoreOn(ctx, profile, series, date, mode)
}

// Prewarm enqueues a job that fills the cache for the user over [from, to].
// It returns ErrBackpressure when the queue is full.
func (s *Service) Prewarm(ctx context.Context, userID string, from, to time.Time) (string, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return "", ErrInvalidRange
	}
	if n := int(model.DaysBetween(from, to)) + 1; n > s.engine.MaxRangeDays() {
		return "", fmt.Errorf("%w: %w", ErrInvalidRange, engine.ErrRangeTooLarge)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	job := model.PrewarmJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		From:       from,
		To:         to,
		EnqueuedAt: time.Now(),
	}
	if !s.queue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "prewarm rejected",
			logger.String("user_id", userID),
			logger.Int("queue_len", s.queue.Len(ctx)),
		)
		return "", ErrBackpressure
	}
	s.logger.Debug(ctx, "prewarm enqueued",
		logger.String("job_id", job.ID),
		logger.String("user_id", userID),
	)
	return job.ID, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	users := s.store.Count(ctx)
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"trackedUsers": users,
	}
	metrics.UpdateTrackedUsers(users)

	if sized, ok := s.engine.Cache().(interface{ Len() int64 }); ok {
		n := sized.Len()
		stats["cacheEntries"] = n
		metrics.UpdateCacheEntries(n)
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["jobsProcessed"] = s.pool.Stats().Processed.Load()
		stats["jobsFailed"] = s.pool.Stats().Failed.Load()
		stats["estimatesWarmed"] = s.pool.Stats().Warmed.Load()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
