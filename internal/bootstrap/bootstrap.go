// Package bootstrap wires the allocation stack shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/allocation"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	"github.com/noah-isme/room-allocation-api/internal/service"
	"github.com/noah-isme/room-allocation-api/pkg/cache"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	"github.com/noah-isme/room-allocation-api/pkg/database"
)

// App holds the long-lived dependencies of one process.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *sqlx.DB
	Redis       *redis.Client
	Metrics     *service.MetricsService
	Scoring     *service.ScoringConfigService
	Sink        allocation.DecisionSink
	Engine      *allocation.Engine
	Demands     *repository.DemandRepository
	Committed   *repository.RoomAllocationRepository
	Allocations *service.AllocationService
}

// New connects to Postgres (and Redis when report caching is on) and builds
// the allocation services. Redis failures disable the cache instead of failing.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger, Metrics: service.NewMetricsService()}

	validate := validator.New()
	scoring, err := service.NewScoringConfigService(service.ScoringConfigOptions{
		DefaultsPath: cfg.Scoring.DefaultsPath,
		UserPath:     cfg.Scoring.UserPath,
		Metrics:      app.Metrics,
	}, validate, logger.Named("scoring"))
	if err != nil {
		return nil, fmt.Errorf("load scoring configuration: %w", err)
	}
	app.Scoring = scoring

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.DB = db

	if cfg.Reports.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("report cache disabled", zap.Error(err))
		} else {
			app.Redis = client
		}
	}

	sink, err := allocation.NewSink(allocation.SinkConfig{
		Type:       cfg.Decisions.Sink,
		Trace:      cfg.Decisions.Trace,
		Path:       cfg.Decisions.JSONLPath,
		MaxSizeMB:  cfg.Decisions.MaxSizeMB,
		MaxBackups: cfg.Decisions.MaxBackups,
		MaxAgeDays: cfg.Decisions.MaxAgeDays,
	}, logger.Named("decisions"))
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Sink = sink

	app.Engine = allocation.NewEngine(allocation.Options{
		TopCandidates: cfg.Allocation.TopCandidates,
		SemesterLimit: cfg.Allocation.SemesterLimit,
		Sink:          sink,
		Logger:        logger.Named("engine"),
		Observer:      app.Metrics,
	})

	cacheRepo := repository.NewCacheRepository(app.Redis, logger)
	cacheSvc := service.NewCacheService(cacheRepo, app.Metrics, cfg.Reports.CacheTTL, logger, app.Redis != nil)

	app.Demands = repository.NewDemandRepository(db)
	app.Committed = repository.NewRoomAllocationRepository(db)
	app.Allocations = service.NewAllocationService(
		app.Demands,
		repository.NewRoomRepository(db),
		repository.NewHardRuleRepository(db),
		repository.NewPreferenceRepository(db),
		app.Committed,
		repository.NewAllocationRunRepository(db),
		db,
		scoring,
		app.Engine,
		cacheSvc,
		validate,
		logger.Named("allocation"),
		service.AllocationServiceConfig{
			PersistByDefault: cfg.Allocation.PersistByDefault,
			Workers:          cfg.Allocation.WorkerConcurrency,
			MaxRetries:       cfg.Allocation.WorkerRetries,
			RunTimeout:       cfg.Allocation.RunTimeout,
		},
	)
	app.Allocations.ObserveQueries(app.Metrics)

	return app, nil
}

// PingDatabase reports whether Postgres answers.
func (a *App) PingDatabase(ctx context.Context) error {
	if a.DB == nil {
		return fmt.Errorf("database not configured")
	}
	return a.DB.PingContext(ctx)
}

// PingCache reports whether Redis answers.
func (a *App) PingCache(ctx context.Context) error {
	if a.Redis == nil {
		return fmt.Errorf("cache not configured")
	}
	return a.Redis.Ping(ctx).Err()
}

// Close stops workers and releases connections in reverse order of creation.
func (a *App) Close() error {
	if a.Allocations != nil {
		a.Allocations.StopWorkers()
	}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Sink != nil {
		keep(a.Sink.Close())
	}
	if a.Redis != nil {
		keep(a.Redis.Close())
	}
	if a.DB != nil {
		keep(a.DB.Close())
	}
	return firstErr
}
