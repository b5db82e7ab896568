package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/bodymetrics/internal/adapters/http/api"
	"github.com/okian/bodymetrics/internal/adapters/http/swagger"
	"github.com/okian/bodymetrics/internal/adapters/rediscache"
	"github.com/okian/bodymetrics/internal/adapters/repository"
	app "github.com/okian/bodymetrics/internal/app"
	"github.com/okian/bodymetrics/internal/config"
	"github.com/okian/bodymetrics/internal/domain/cache"
	"github.com/okian/bodymetrics/internal/domain/engine"
	"github.com/okian/bodymetrics/internal/domain/interp"
	"github.com/okian/bodymetrics/internal/domain/scoring"
	"github.com/okian/bodymetrics/pkg/logger"
	"github.com/okian/bodymetrics/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeCache, err := newService(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	defer closeCache()

	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newService builds the cache, engine, store and service from cfg. The
// returned func releases the cache backend.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	c, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info(ctx, "estimation cache ready", logger.String("backend", cfg.CacheBackend))

	eng := engine.New(
		engine.WithCache(c),
		engine.WithLogger(log.Named("engine")),
		engine.WithMaxRangeDays(cfg.MaxRangeDays),
		engine.WithTrendEstimator(interp.NewTrendEstimator(
			interp.WithLookbackDays(cfg.TrendLookbackDays),
			interp.WithHalfLifeDays(cfg.TrendHalfLifeDays),
			interp.WithStaleFactor(cfg.TrendStaleFactor),
		)),
		engine.WithCalculator(scoring.NewCalculator(
			scoring.WithWeights(cfg.FFMIWeight, cfg.BodyFatWeight),
			scoring.WithAgeEffect(cfg.AgeReference, cfg.AgeBodyFatShiftPerDecade),
		)),
	)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithStore(repository.NewMemoryStore(repository.WithMaxSamplesPerUser(cfg.MaxSamplesPerUser))),
		app.WithEngine(eng),
	)
	return svc, closeCache, nil
}

// newCache selects the estimation cache backend. A nil cache disables caching.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch strings.ToLower(cfg.CacheBackend) {
	case config.CacheNone:
		return nil, func() {}, nil
	case config.CacheRedis:
		client, err := rediscache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rediscache.New(client, rediscache.WithTTL(cfg.CacheTTL)), func() { _ = client.Close() }, nil
	case config.CacheMemory:
		return cache.NewMemory(
			cache.WithMaxEntries(cfg.CacheMaxEntries),
			cache.WithEvictHook(metrics.RecordCacheEvictions),
		), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown cache_backend %q", config.ErrInvalidConfig, cfg.CacheBackend)
	}
}

func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the gauges GetStats maintains.
func updateServiceMetrics(svc *app.Service) {
	_ = svc.GetStats()
}
