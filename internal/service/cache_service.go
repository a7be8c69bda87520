package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

const reportKeyPrefix = "allocation:report:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService keeps decision reports of finished runs, one entry per run and
// discipline filter.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a report cache. A non-positive ttl falls back to ten minutes.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Report returns the cached report of run. Running runs are never served from cache.
func (s *CacheService) Report(ctx context.Context, run models.AllocationRun, disciplineCode string) (*models.DecisionReport, bool) {
	if !s.Enabled() || !reportCacheable(run) {
		return nil, false
	}
	var report models.DecisionReport
	start := time.Now()
	err := s.repo.Get(ctx, reportKey(run.ID, disciplineCode), &report)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.String("run_id", run.ID), zap.Error(err))
		}
		return nil, false
	}
	return &report, true
}

// StoreReport caches report for a finished run. Write failures are logged only.
func (s *CacheService) StoreReport(ctx context.Context, run models.AllocationRun, disciplineCode string, report models.DecisionReport) {
	if !s.Enabled() || !reportCacheable(run) {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, reportKey(run.ID, disciplineCode), report, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("report cache write failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// InvalidateRun drops every cached report of runID.
func (s *CacheService) InvalidateRun(ctx context.Context, runID string) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.DeleteByPattern(ctx, reportKeyPrefix+runID+":*")
}

func reportKey(runID, disciplineCode string) string {
	return reportKeyPrefix + runID + ":" + disciplineCode
}

func reportCacheable(run models.AllocationRun) bool {
	return run.Status != models.AllocationRunStatusRunning
}
