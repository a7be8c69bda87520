package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/handler"
	internalmiddleware "github.com/noah-isme/room-allocation-api/internal/middleware"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	"github.com/noah-isme/room-allocation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/room-allocation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/room-allocation-api/pkg/middleware/requestid"
)

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Config        *config.Config
	Logger        *zap.Logger
	Observer      internalmiddleware.RequestObserver
	Scoring       internalmiddleware.ScoringVersionSource
	Allocations   *handler.AllocationHandler
	ScoringConfig *handler.ScoringConfigHandler
	Metrics       *handler.MetricsHandler
}

// New builds the gin engine with health checks, docs and the versioned API.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{APIPrefix: "/api/v1", Allocation: config.AllocationConfig{Enabled: true}}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.Observer))

	if deps.Metrics != nil {
		r.GET("/health", deps.Metrics.Health)
		r.GET("/ready", deps.Metrics.Ready)
		r.GET("/metrics", deps.Metrics.Prometheus)
	} else {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix(cfg.APIPrefix))
	api.Use(internalmiddleware.WithResponseMeta())

	if deps.Metrics != nil {
		api.GET("/metrics/summary", deps.Metrics.Summary)
	}

	if deps.ScoringConfig != nil {
		scoring := api.Group("/scoring-config")
		scoring.GET("", deps.ScoringConfig.Get)
		scoring.POST("/reload", deps.ScoringConfig.Reload)
		scoring.PUT("/overrides", deps.ScoringConfig.UpdateOverrides)
	}

	if cfg.Allocation.Enabled && deps.Allocations != nil {
		allocations := api.Group("/allocations")
		if deps.Scoring != nil {
			allocations.Use(internalmiddleware.ScoringVersion(deps.Scoring))
		}
		allocations.POST("/runs", deps.Allocations.Run)
		allocations.GET("/runs", deps.Allocations.ListRuns)
		allocations.GET("/runs/:id", deps.Allocations.GetRun)
		allocations.GET("/runs/:id/decisions", deps.Allocations.Decisions)
		allocations.GET("/runs/:id/report", deps.Allocations.Report)
		allocations.GET("/runs/:id/export", deps.Allocations.Export)
		allocations.GET("/demands/:id/candidates", deps.Allocations.Candidates)
		allocations.POST("/schedules/decode", deps.Allocations.DecodeSchedule)
	} else {
		log.Info("allocation API disabled")
	}

	return r
}

func apiPrefix(raw string) string {
	prefix := strings.TrimRight(strings.TrimSpace(raw), "/")
	if prefix == "" {
		return "/api/v1"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
