// Package worker runs background prewarm jobs that fill the estimation cache.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/bodymetrics/internal/adapters/mq/queue"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/pkg/logger"
	"github.com/okian/bodymetrics/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// SeriesSource loads a user's sorted sample series.
type SeriesSource interface {
	Series(ctx context.Context, userID string) ([]model.MetricSample, error)
}

// Warmer fills the estimation cache for a range of days.
type Warmer interface {
	Warm(ctx context.Context, kind model.MetricKind, series []model.MetricSample, from, to time.Time, mode model.EstimateMode) (int, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// target is one (kind, mode) pair warmed per job.
type target struct {
	kind model.MetricKind
	mode model.EstimateMode
}

// Every job warms raw and trend weight and raw body fat.
var targets = []target{
	{kind: model.KindWeight, mode: model.ModeRaw},
	{kind: model.KindWeight, mode: model.ModeTrend},
	{kind: model.KindBodyFat, mode: model.ModeRaw},
}

// Stats counts finished jobs. It is shared by the workers of a pool.
type Stats struct {
	Processed atomic.Int64
	Failed    atomic.Int64
	Warmed    atomic.Int64
}

// InMemoryWorker processes prewarm jobs.
type InMemoryWorker struct {
	queue  Queue
	source SeriesSource
	warmer Warmer
	name   string
	stats  *Stats

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, source SeriesSource, warmer Warmer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		source:   source,
		warmer:   warmer,
		name:     "worker",
		stats:    &Stats{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled, Shutdown is called or the
// queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// The dequeue goroutine lives only as long as this loop.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "prewarm job failed",
					logger.String("job_id", job.ID),
					logger.String("user_id", job.UserID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signal()
	return w.wait(ctx)
}

func (w *InMemoryWorker) signal() {
	w.once.Do(func() { close(w.shutdown) })
}

// wait blocks until Run returns or ctx is done.
func (w *InMemoryWorker) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process warms every target of one job in parallel.
func (w *InMemoryWorker) process(ctx context.Context, job Job) (err error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	var warmed atomic.Int64
	defer func() {
		n := warmed.Load()
		metrics.RecordPrewarmJob(int(n), float64(time.Since(start).Microseconds())/1000, err)
		w.stats.Warmed.Add(n)
		if err != nil {
			w.stats.Failed.Add(1)
			metrics.RecordErrorByComponent("worker", "prewarm_failed")
			return
		}
		w.stats.Processed.Add(1)
	}()

	series, err := w.source.Series(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load series for %s: %w", job.UserID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			n, err := w.warmer.Warm(gctx, t.kind, series, job.From, job.To, t.mode)
			warmed.Add(int64(n))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("prewarm %s: %w", job.ID, err)
	}

	w.logger.Debug(ctx, "prewarm job done",
		logger.String("job_id", job.ID),
		logger.Int64("warmed", warmed.Load()),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *Stats

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one uses one worker per CPU.
func NewPool(workerCount int, q Queue, source SeriesSource, warmer Warmer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &Stats{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, source, warmer,
			WithName("worker-"+strconv.Itoa(i)),
			WithStats(pool.stats),
		)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Stats returns the shared job counters.
func (p *Pool) Stats() *Stats { return p.stats }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// running when ctx or the pool timeout expires are told to stop after their
// current job, and the remaining jobs are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	closer, ok := p.queue.(interface{ Close() error })
	if ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	defer metrics.UpdateWorkerCount(0)

	if !ok {
		// Without a close the queue never drains.
		for _, w := range p.workers {
			w.signal()
		}
	}

	var drainErr error
	for i, w := range p.workers {
		if err := w.wait(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker did not drain the queue", logger.Int("worker_id", i))
			drainErr = err
			break
		}
	}
	if drainErr == nil {
		return nil
	}

	for _, w := range p.workers {
		w.signal()
	}
	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), workerShutdownTimeout)
	defer stopCancel()
	for _, w := range p.workers {
		_ = w.wait(stopCtx)
	}
	return fmt.Errorf("worker pool drain: %w", drainErr)
}
