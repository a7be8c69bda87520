package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/room-allocation-api/api/swagger"
	"github.com/noah-isme/room-allocation-api/internal/bootstrap"
	"github.com/noah-isme/room-allocation-api/internal/handler"
	"github.com/noah-isme/room-allocation-api/internal/router"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	"github.com/noah-isme/room-allocation-api/pkg/logger"
)

// @title Room Allocation API
// @version 1.0.0
// @description Assigns classrooms to class demands per semester and explains every decision.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to bootstrap", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logr.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}()

	if cfg.Scoring.Watch {
		if err := app.Scoring.Watch(ctx); err != nil {
			logr.Warn("scoring watch disabled", zap.Error(err))
		}
	}
	app.Allocations.StartWorkers(ctx)

	checks := map[string]handler.ReadinessCheck{"database": app.PingDatabase}
	if app.Redis != nil {
		checks["redis"] = app.PingCache
	}

	r := router.New(router.Dependencies{
		Config:        cfg,
		Logger:        logr,
		Observer:      app.Metrics,
		Scoring:       app.Scoring,
		Allocations:   handler.NewAllocationHandler(app.Allocations),
		ScoringConfig: handler.NewScoringConfigHandler(app.Scoring),
		Metrics:       handler.NewMetricsHandler(app.Metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "scoring_version", app.Scoring.Current().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
