package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/allocation"
	"github.com/noah-isme/room-allocation-api/internal/dto"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/export"
	"github.com/noah-isme/room-allocation-api/pkg/jobs"
	"github.com/noah-isme/room-allocation-api/pkg/timeblock"
)

const (
	allocationJobType       = "allocation.run"
	defaultRunRetention     = 6 * time.Hour
	defaultRunRetainedCount = 64
)

type demandReader interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.Demand, error)
	FindByID(ctx context.Context, id string) (*models.Demand, error)
}

type roomReader interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type hardRuleReader interface {
	List(ctx context.Context) ([]models.HardRule, error)
}

type preferenceReader interface {
	List(ctx context.Context) ([]models.Preference, error)
}

type roomAllocationStore interface {
	HistoricalCounts(ctx context.Context, semesterID string, includeCurrent bool) ([]models.HistoricalAllocationCount, error)
	ReplaceForSemester(ctx context.Context, exec sqlx.ExtContext, semesterID string, rows []models.RoomAllocation) error
}

type allocationRunStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, run *models.AllocationRun) error
	Finish(ctx context.Context, exec sqlx.ExtContext, id string, params repository.FinishRunParams) error
	FindByID(ctx context.Context, id string) (*models.AllocationRun, error)
	List(ctx context.Context, filter repository.AllocationRunFilter) ([]models.AllocationRun, int, error)
	InsertDecisions(ctx context.Context, exec sqlx.ExtContext, decisions []models.AllocationDecision) error
	ListDecisions(ctx context.Context, runID string, filter repository.DecisionFilter) ([]models.AllocationDecision, error)
}

type scoringSnapshotter interface {
	Current() models.ScoringConfig
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// AllocationServiceConfig governs run execution.
type AllocationServiceConfig struct {
	PersistByDefault bool
	Workers          int
	MaxRetries       int
	RetryDelay       time.Duration
	RunTimeout       time.Duration
	RetainRuns       int
	RetainFor        time.Duration
}

type runJob struct {
	Run     models.AllocationRun
	Config  models.ScoringConfig
	Persist bool
}

// AllocationService loads reference data, drives the engine and persists runs.
type AllocationService struct {
	demands     demandReader
	rooms       roomReader
	rules       hardRuleReader
	prefs       preferenceReader
	allocations roomAllocationStore
	runs        allocationRunStore
	tx          txProvider
	scoring     scoringSnapshotter
	engine      *allocation.Engine
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         AllocationServiceConfig

	queries queryObserver

	locks *semesterLocks
	store *runStore
	queue *jobs.Queue
	csv   *export.CSVExporter
	pdf   *export.PDFExporter
}

// NewAllocationService wires allocation dependencies. runs, allocations and tx
// may be nil, in which case runs live in memory only.
func NewAllocationService(
	demands demandReader,
	rooms roomReader,
	rules hardRuleReader,
	prefs preferenceReader,
	allocations roomAllocationStore,
	runs allocationRunStore,
	tx txProvider,
	scoring scoringSnapshotter,
	engine *allocation.Engine,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AllocationServiceConfig,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = allocation.NewEngine(allocation.Options{Logger: logger})
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = defaultRunRetention
	}
	if cfg.RetainRuns <= 0 {
		cfg.RetainRuns = defaultRunRetainedCount
	}
	return &AllocationService{
		demands:     demands,
		rooms:       rooms,
		rules:       rules,
		prefs:       prefs,
		allocations: allocations,
		runs:        runs,
		tx:          tx,
		scoring:     scoring,
		engine:      engine,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		locks:       newSemesterLocks(),
		store:       newRunStore(cfg.RetainFor, cfg.RetainRuns),
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
	}
}

// ObserveQueries reports load and persist timings to obs.
func (s *AllocationService) ObserveQueries(obs queryObserver) {
	s.queries = obs
}

func (s *AllocationService) observeQuery(label string, start time.Time) {
	if s.queries != nil {
		s.queries.ObserveDBQuery(label, time.Since(start))
	}
}

// StartWorkers enables asynchronous runs.
func (s *AllocationService) StartWorkers(ctx context.Context) {
	if s.queue != nil {
		return
	}
	s.queue = jobs.NewQueue("allocation-runs", s.handleJob, jobs.QueueConfig{
		Workers:    s.cfg.Workers,
		MaxRetries: s.cfg.MaxRetries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     s.logger,
		OnGiveUp:   s.giveUp,
	})
	s.queue.Start(ctx)
}

// StopWorkers drains the worker pool.
func (s *AllocationService) StopWorkers() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Run allocates the requested semesters, synchronously or through the worker
// queue. Aborted runs are reported in the summaries, not as errors.
func (s *AllocationService) Run(ctx context.Context, req dto.RunAllocationRequest) (*dto.RunAllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation run payload")
	}
	semesters := req.Semesters()
	persist := s.cfg.PersistByDefault
	if req.Persist != nil {
		persist = *req.Persist
	}
	if persist && !s.canPersist() {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "allocation persistence is not configured")
	}
	if req.Async && s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "allocation workers are not running")
	}
	if !s.locks.tryAcquire(semesters...) {
		return nil, appErrors.Clone(appErrors.ErrRunInProgress, fmt.Sprintf("an allocation run is already in progress for %s", strings.Join(semesters, ", ")))
	}

	cfg := s.scoring.Current()
	if req.Async {
		return s.enqueue(ctx, semesters, cfg, persist)
	}
	defer s.locks.release(semesters...)

	inputs := make([]allocation.SemesterInput, 0, len(semesters))
	for _, semesterID := range semesters {
		input, err := s.loadInput(ctx, semesterID, cfg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}

	headers := make(map[string]models.AllocationRun, len(semesters))
	for _, semesterID := range semesters {
		run, err := s.openRun(ctx, semesterID, cfg, persist)
		if err != nil {
			for _, opened := range headers {
				s.failRun(ctx, opened, persist, err)
			}
			return nil, err
		}
		headers[semesterID] = run
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()
	outcomes, err := s.engine.RunSemesters(runCtx, cfg, inputs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester selection")
	}

	resp := &dto.RunAllocationResponse{Runs: make([]dto.RunSummary, 0, len(outcomes))}
	for _, outcome := range outcomes {
		// Persistence runs on the caller context so a run timeout still records the abort.
		summary, err := s.closeRun(ctx, headers[outcome.SemesterID], outcome.Result, outcome.Err, persist)
		if err != nil {
			return nil, err
		}
		resp.Runs = append(resp.Runs, summary)
	}
	return resp, nil
}

func (s *AllocationService) enqueue(ctx context.Context, semesters []string, cfg models.ScoringConfig, persist bool) (*dto.RunAllocationResponse, error) {
	resp := &dto.RunAllocationResponse{Async: true, Runs: make([]dto.RunSummary, 0, len(semesters))}
	for i, semesterID := range semesters {
		run, err := s.openRun(ctx, semesterID, cfg, persist)
		if err == nil {
			err = s.queue.Enqueue(jobs.Job{
				ID:      run.ID,
				Type:    allocationJobType,
				Payload: runJob{Run: run, Config: cfg, Persist: persist},
			})
			if err != nil {
				s.failRun(ctx, run, persist, err)
				err = appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to queue allocation run")
			}
		}
		if err != nil {
			s.locks.release(semesters[i:]...)
			return nil, err
		}
		resp.Runs = append(resp.Runs, summarizeRun(run, persist))
	}
	return resp, nil
}

func (s *AllocationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(runJob)
	if !ok {
		s.logger.Error("unexpected allocation job payload", zap.String("job_id", job.ID))
		return nil
	}
	input, err := s.loadInput(ctx, payload.Run.SemesterID, payload.Config)
	if err != nil {
		if !isTerminal(err) {
			return err
		}
		s.failRun(ctx, payload.Run, payload.Persist, err)
		s.locks.release(payload.Run.SemesterID)
		return nil
	}

	runCtx, cancel := s.runContext(ctx)
	result, runErr := s.engine.Run(runCtx, payload.Config, input)
	cancel()

	if _, err := s.closeRun(ctx, payload.Run, result, runErr, payload.Persist); err != nil {
		s.logger.Error("failed to record allocation run", zap.String("run_id", payload.Run.ID), zap.Error(err))
	}
	s.locks.release(payload.Run.SemesterID)
	return nil
}

// isTerminal reports whether retrying a job cannot change its outcome.
func isTerminal(err error) bool {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == appErrors.ErrNotFound.Code || appErr.Code == appErrors.ErrValidation.Code
}

func (s *AllocationService) giveUp(job jobs.Job, err error) {
	payload, ok := job.Payload.(runJob)
	if !ok {
		return
	}
	s.failRun(context.Background(), payload.Run, payload.Persist, err)
	s.locks.release(payload.Run.SemesterID)
}

// failRun marks a run aborted before the engine produced anything.
func (s *AllocationService) failRun(ctx context.Context, run models.AllocationRun, persist bool, cause error) {
	if _, err := s.closeRun(ctx, run, nil, &allocation.RunError{SemesterID: run.SemesterID, Err: cause}, persist); err != nil {
		s.logger.Error("failed to mark allocation run aborted", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *AllocationService) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *AllocationService) canPersist() bool {
	return s.runs != nil && s.allocations != nil && s.tx != nil
}

// loadInput reads a semester's demands and the reference feeds.
func (s *AllocationService) loadInput(ctx context.Context, semesterID string, cfg models.ScoringConfig) (allocation.SemesterInput, error) {
	start := time.Now()
	demands, err := s.demands.ListBySemester(ctx, semesterID)
	s.observeQuery("demands.list_by_semester", start)
	if err != nil {
		return allocation.SemesterInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demands")
	}
	if len(demands) == 0 {
		return allocation.SemesterInput{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no demands found for semester %s", semesterID))
	}
	ref, err := s.loadReference(ctx, semesterID, cfg)
	if err != nil {
		return allocation.SemesterInput{}, err
	}
	return allocation.SemesterInput{SemesterID: semesterID, Demands: demands, Reference: ref}, nil
}

// loadReference reads rooms, rules, preferences and the history of semesters
// preceding semesterID.
func (s *AllocationService) loadReference(ctx context.Context, semesterID string, cfg models.ScoringConfig) (allocation.ReferenceData, error) {
	start := time.Now()
	defer s.observeQuery("reference.load", start)

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return allocation.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return allocation.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hard rules")
	}
	prefs, err := s.prefs.List(ctx)
	if err != nil {
		return allocation.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor preferences")
	}
	ref := allocation.ReferenceData{Rooms: rooms, HardRules: rules, Preferences: prefs}
	if s.allocations != nil {
		counts, err := s.allocations.HistoricalCounts(ctx, semesterID, !cfg.Rules.HistoricalExcludeCurrentSemester)
		if err != nil {
			return allocation.ReferenceData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load historical allocations")
		}
		ref.Historical = models.NewHistoricalCounts(counts)
	}
	return ref, nil
}

// openRun creates the RUNNING header, persisting it when requested.
func (s *AllocationService) openRun(ctx context.Context, semesterID string, cfg models.ScoringConfig, persist bool) (models.AllocationRun, error) {
	snapshot, err := json.Marshal(cfg)
	if err != nil {
		return models.AllocationRun{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode scoring snapshot")
	}
	run := models.AllocationRun{
		ID:             uuid.NewString(),
		SemesterID:     semesterID,
		Status:         models.AllocationRunStatusRunning,
		ConfigVersion:  cfg.Version,
		ConfigSnapshot: types.JSONText(snapshot),
		StartedAt:      time.Now().UTC(),
	}
	if persist {
		if err := s.runs.Create(ctx, nil, &run); err != nil {
			return models.AllocationRun{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create allocation run")
		}
	}
	s.store.Save(run, nil)
	return run, nil
}

// closeRun records the terminal state of a run. An aborted run keeps its
// partial decision log but never replaces the semester's committed allocations.
func (s *AllocationService) closeRun(ctx context.Context, run models.AllocationRun, result *allocation.Result, runErr error, persist bool) (dto.RunSummary, error) {
	var records []models.AllocationRecord
	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt

	if runErr != nil {
		var abortErr *allocation.RunError
		if errors.As(runErr, &abortErr) {
			records = abortErr.Records
		}
		reason := runErr.Error()
		run.Status = models.AllocationRunStatusAborted
		run.AbortReason = &reason
	} else {
		records = result.Records
		run.Status = models.AllocationRunStatusCompleted
	}
	run.DemandCount = len(records)
	run.AllocatedCount = countAllocated(records)

	if persist {
		if err := s.persistRun(ctx, run, records); err != nil {
			return dto.RunSummary{}, err
		}
	}
	s.store.Save(run, records)
	if err := s.cache.InvalidateRun(ctx, run.ID); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("run_id", run.ID), zap.Error(err))
	}

	s.logger.Info("allocation run recorded",
		zap.String("run_id", run.ID),
		zap.String("semester_id", run.SemesterID),
		zap.String("status", string(run.Status)),
		zap.Int("demands", run.DemandCount),
		zap.Int("allocated", run.AllocatedCount),
		zap.Bool("persisted", persist),
	)
	return summarizeRun(run, persist), nil
}

func (s *AllocationService) persistRun(ctx context.Context, run models.AllocationRun, records []models.AllocationRecord) (err error) {
	decisions, err := toDecisions(run.ID, records)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode allocation decisions")
	}

	start := time.Now()
	defer s.observeQuery("allocation_runs.persist", start)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.runs.InsertDecisions(ctx, tx, decisions); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store allocation decisions")
		return err
	}
	if run.Status == models.AllocationRunStatusCompleted {
		if err = s.allocations.ReplaceForSemester(ctx, tx, run.SemesterID, toRoomAllocations(run.ID, records)); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store room allocations")
			return err
		}
	}
	if err = s.runs.Finish(ctx, tx, run.ID, repository.FinishRunParams{
		Status:         run.Status,
		DemandCount:    run.DemandCount,
		AllocatedCount: run.AllocatedCount,
		AbortReason:    run.AbortReason,
		FinishedAt:     *run.FinishedAt,
	}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish allocation run")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation run")
		return err
	}
	return nil
}

// ListRuns returns runs newest first with the total before paging.
func (s *AllocationService) ListRuns(ctx context.Context, query dto.AllocationRunQuery) ([]models.AllocationRun, int, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run query")
	}
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	status := models.AllocationRunStatus(query.Status)

	if s.runs == nil {
		runs := s.store.List(query.SemesterID, status)
		total := len(runs)
		start := (page - 1) * size
		if start > total {
			start = total
		}
		end := start + size
		if end > total {
			end = total
		}
		return runs[start:end], total, nil
	}

	runs, total, err := s.runs.List(ctx, repository.AllocationRunFilter{
		SemesterID: query.SemesterID,
		Status:     status,
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocation runs")
	}
	return runs, total, nil
}

// GetRun returns one run header.
func (s *AllocationService) GetRun(ctx context.Context, id string) (*models.AllocationRun, error) {
	if entry, ok := s.store.Get(id); ok {
		run := entry.run
		return &run, nil
	}
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation run not found")
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation run")
	}
	return run, nil
}

// ListDecisions returns a run's decision log in sequence order.
func (s *AllocationService) ListDecisions(ctx context.Context, runID string, query dto.DecisionQuery) ([]models.AllocationRecord, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision query")
	}
	records, err := s.decisionLog(ctx, runID)
	if err != nil {
		return nil, err
	}
	return allocation.Filter(records, allocation.RecordFilter{
		DisciplineCode: query.DisciplineCode,
		Allocated:      query.Allocated,
	}), nil
}

// Report aggregates a run's decision log. Reports of finished runs are cached.
func (s *AllocationService) Report(ctx context.Context, runID, disciplineCode string) (*models.DecisionReport, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if cached, hit := s.cache.Report(ctx, *run, disciplineCode); hit {
		return cached, nil
	}

	records, err := s.decisionLog(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	report := allocation.BuildReport(records, disciplineCode)
	s.cache.StoreReport(ctx, *run, disciplineCode, report)
	return &report, nil
}

// Export renders a run's decision log as json, csv or pdf.
func (s *AllocationService) Export(ctx context.Context, runID string, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	records, err := s.ListDecisions(ctx, runID, dto.DecisionQuery{DisciplineCode: query.DisciplineCode})
	if err != nil {
		return nil, err
	}
	format := query.Format
	if format == "" {
		format = dto.ExportFormatJSON
	}
	filename := fmt.Sprintf("allocation-%s.%s", runID, format)

	switch format {
	case dto.ExportFormatJSON:
		body, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode decisions")
		}
		return &dto.ExportFile{Filename: filename, ContentType: "application/json", Body: body}, nil
	case dto.ExportFormatCSV:
		body, err := s.csv.Render(decisionDataset(records))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &dto.ExportFile{Filename: filename, ContentType: "text/csv", Body: body}, nil
	default:
		data := decisionDataset(records).Select("sequence", "discipline_code", "section", "priority", "room_id", "phase", "total_score", "time_blocks", "reason")
		body, err := s.pdf.Render(data, "Allocation decisions "+runID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &dto.ExportFile{Filename: filename, ContentType: "application/pdf", Body: body}, nil
	}
}

// PreviewCandidates scores every room for one demand against the active configuration.
func (s *AllocationService) PreviewCandidates(ctx context.Context, demandID string) (*dto.CandidatePreviewResponse, error) {
	demand, err := s.demands.FindByID(ctx, demandID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "demand not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demand")
	}
	cfg := s.scoring.Current()
	ref, err := s.loadReference(ctx, demand.SemesterID, cfg)
	if err != nil {
		return nil, err
	}

	preview, err := s.engine.Preview(cfg, *demand, ref)
	if err != nil {
		var parseErr *timeblock.ParseError
		switch {
		case errors.As(err, &parseErr):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "demand schedule cannot be decoded")
		case errors.Is(err, allocation.ErrMissingReferenceData), errors.Is(err, allocation.ErrInvalidReferenceData):
			return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "reference data is not usable")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to preview candidates")
		}
	}

	resp := &dto.CandidatePreviewResponse{
		DemandID:       demand.ID,
		SemesterID:     demand.SemesterID,
		DisciplineCode: demand.DisciplineCode,
		Enrollment:     demand.Enrollment,
		Priority:       preview.Priority,
		ConfigVersion:  cfg.Version,
		TimeBlocks:     preview.Blocks.Strings(),
		Rules:          make([]string, 0, len(preview.Rules)),
		Candidates:     make([]dto.CandidatePreview, 0, len(preview.Candidates)),
	}
	for _, rule := range preview.Rules {
		resp.Rules = append(resp.Rules, rule.Label())
	}
	for _, c := range preview.Candidates {
		resp.Candidates = append(resp.Candidates, dto.CandidatePreview{
			RoomID:               c.Room.ID,
			Capacity:             c.Room.Capacity,
			Eligible:             c.PassedHardRules,
			FailedRules:          c.FailedRules,
			Score:                c.Score,
			HistoricalCount:      c.HistoricalCount,
			PreferencesSatisfied: c.Preferences,
		})
	}
	return resp, nil
}

// DecodeSchedule expands a raw schedule string.
func (s *AllocationService) DecodeSchedule(req dto.DecodeScheduleRequest) (*dto.DecodeScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decode payload")
	}
	blocks, err := timeblock.Decode(req.Schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return &dto.DecodeScheduleResponse{
		Schedule:  req.Schedule,
		Canonical: timeblock.Encode(blocks),
		Codes:     blocks.Strings(),
		Blocks:    blocks,
	}, nil
}

func (s *AllocationService) decisionLog(ctx context.Context, runID string) ([]models.AllocationRecord, error) {
	if entry, ok := s.store.Get(runID); ok && (entry.records != nil || s.runs == nil) {
		return entry.records, nil
	}
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation run not found")
	}
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.runs.ListDecisions(ctx, runID, repository.DecisionFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation decisions")
	}
	records := make([]models.AllocationRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.AllocationRecord
		if err := row.Record.Unmarshal(&rec); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode allocation decision")
		}
		records = append(records, rec)
	}
	return records, nil
}

func summarizeRun(run models.AllocationRun, persisted bool) dto.RunSummary {
	summary := dto.RunSummary{
		RunID:            run.ID,
		SemesterID:       run.SemesterID,
		Status:           run.Status,
		ConfigVersion:    run.ConfigVersion,
		DemandCount:      run.DemandCount,
		AllocatedCount:   run.AllocatedCount,
		UnallocatedCount: run.DemandCount - run.AllocatedCount,
		Persisted:        persisted,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
	}
	if run.DemandCount > 0 {
		summary.SuccessRate = float64(run.AllocatedCount) / float64(run.DemandCount)
	}
	if run.AbortReason != nil {
		summary.AbortReason = *run.AbortReason
	}
	return summary
}

func countAllocated(records []models.AllocationRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Allocated {
			n++
		}
	}
	return n
}

func toDecisions(runID string, records []models.AllocationRecord) ([]models.AllocationDecision, error) {
	decisions := make([]models.AllocationDecision, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, models.AllocationDecision{
			RunID:          runID,
			Sequence:       rec.Sequence,
			DemandID:       rec.DemandID,
			DisciplineCode: rec.DisciplineCode,
			Allocated:      rec.Allocated,
			RoomID:         rec.RoomID,
			Record:         types.JSONText(payload),
		})
	}
	return decisions, nil
}

func toRoomAllocations(runID string, records []models.AllocationRecord) []models.RoomAllocation {
	rows := make([]models.RoomAllocation, 0, len(records))
	for _, rec := range records {
		if !rec.Allocated || rec.RoomID == nil {
			continue
		}
		blocks := strings.Join(rec.TimeBlocks, " ")
		if decoded, err := timeblock.Decode(blocks); err == nil {
			blocks = timeblock.Encode(decoded)
		}
		rows = append(rows, models.RoomAllocation{
			RunID:          runID,
			DemandID:       rec.DemandID,
			DisciplineCode: rec.DisciplineCode,
			RoomID:         *rec.RoomID,
			TimeBlocks:     blocks,
		})
	}
	return rows
}

func decisionDataset(records []models.AllocationRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Flatten())
	}
	return export.Dataset{Headers: models.FlatRecordHeaders, Rows: rows}
}
