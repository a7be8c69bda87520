package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/allocation"
	"github.com/noah-isme/room-allocation-api/internal/dto"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/jobs"
)

func TestAllocationServiceRunInMemory(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	require.Len(t, resp.Runs, 1)
	summary := resp.Runs[0]
	assert.Equal(t, models.AllocationRunStatusCompleted, summary.Status)
	assert.Equal(t, 3, summary.DemandCount)
	assert.Equal(t, 2, summary.AllocatedCount)
	assert.Equal(t, 1, summary.UnallocatedCount)
	assert.False(t, summary.Persisted)
	assert.Equal(t, int64(7), summary.ConfigVersion)

	runs, total, err := svc.ListRuns(context.Background(), dto.AllocationRunQuery{SemesterID: "2024.1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, summary.RunID, runs[0].ID)

	allocated := false
	failed, err := svc.ListDecisions(context.Background(), summary.RunID, dto.DecisionQuery{Allocated: &allocated})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "d3", failed[0].DemandID)
	assert.Equal(t, models.ReasonScheduleDecode, failed[0].Reason)

	report, err := svc.Report(context.Background(), summary.RunID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Allocated)
}

func TestAllocationServiceRunPersists(t *testing.T) {
	tx, mock := newAllocationTxMock(t)
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{persist: true, tx: tx})
	metrics := NewMetricsService()
	svc.ObserveQueries(metrics)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	summary := resp.Runs[0]
	assert.True(t, summary.Persisted)
	assert.Equal(t, uint64(3), metrics.Snapshot().DBQueryCount)

	created := deps.runs.created[summary.RunID]
	assert.Equal(t, models.AllocationRunStatusRunning, created.Status)
	assert.Contains(t, string(created.ConfigSnapshot), "HARD_RULE_COMPLIANCE")

	finished := deps.runs.finished[summary.RunID]
	assert.Equal(t, models.AllocationRunStatusCompleted, finished.Status)
	assert.Equal(t, 3, finished.DemandCount)
	assert.Equal(t, 2, finished.AllocatedCount)
	assert.Len(t, deps.runs.decisions[summary.RunID], 3)

	rows := deps.allocations.replaced["2024.1"]
	require.Len(t, rows, 2)
	assert.Equal(t, summary.RunID, rows[0].RunID)
	assert.Equal(t, "24M12", rows[0].TimeBlocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationServiceAbortedRunKeepsCommittedAllocations(t *testing.T) {
	tx, mock := newAllocationTxMock(t)
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{persist: true, tx: tx, noRooms: true})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	summary := resp.Runs[0]
	assert.Equal(t, models.AllocationRunStatusAborted, summary.Status)
	assert.Contains(t, summary.AbortReason, "missing reference data")

	finished := deps.runs.finished[summary.RunID]
	assert.Equal(t, models.AllocationRunStatusAborted, finished.Status)
	require.NotNil(t, finished.AbortReason)
	_, replaced := deps.allocations.replaced["2024.1"]
	assert.False(t, replaced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationServiceRollsBackOnPersistFailure(t *testing.T) {
	tx, mock := newAllocationTxMock(t)
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{persist: true, tx: tx})
	deps.allocations.replaceErr = sql.ErrConnDone

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationServiceRejectsConcurrentSemesterRun(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})
	require.True(t, svc.locks.tryAcquire("2024.1"))

	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterIDs: []string{"2023.2", "2024.1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunInProgress.Code, appErrors.FromError(err).Code)
	assert.True(t, svc.locks.tryAcquire("2023.2"), "a rejected request must not keep partial locks")
}

func TestAllocationServiceRunValidation(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})

	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "1999.1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	persist := true
	_, err = svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1", Persist: &persist})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceHistoricalExcludesCurrentSemester(t *testing.T) {
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{excludeCurrent: true})

	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	assert.Equal(t, []historyQuery{{semesterID: "2024.1"}}, deps.allocations.history)
}

func TestAllocationServiceHistoricalBoundedByRunSemester(t *testing.T) {
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{})

	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2023.2"})
	require.NoError(t, err)
	assert.Equal(t, []historyQuery{{semesterID: "2023.2", includeCurrent: true}}, deps.allocations.history)
}

func TestAllocationServiceRunsSemestersIndependently(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1", SemesterIDs: []string{"2023.2", "2024.1"}})
	require.NoError(t, err)
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "2024.1", resp.Runs[0].SemesterID)
	assert.Equal(t, "2023.2", resp.Runs[1].SemesterID)
	assert.Equal(t, 2, resp.Runs[0].AllocatedCount)
	assert.Equal(t, 1, resp.Runs[1].AllocatedCount)
}

func TestAllocationServiceAsyncRun(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorkers(ctx)
	defer svc.StopWorkers()

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1", Async: true})
	require.NoError(t, err)
	require.True(t, resp.Async)
	runID := resp.Runs[0].RunID
	assert.Equal(t, models.AllocationRunStatusRunning, resp.Runs[0].Status)

	assert.Eventually(t, func() bool {
		run, err := svc.GetRun(context.Background(), runID)
		return err == nil && run.Status == models.AllocationRunStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		ok := svc.locks.tryAcquire("2024.1")
		if ok {
			svc.locks.release("2024.1")
		}
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestAllocationServiceAsyncRequiresWorkers(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})
	_, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1", Async: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceReportIsCached(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{cache: NewCacheService(cacheRepo, nil, time.Minute, nil, true)})

	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	runID := resp.Runs[0].RunID

	first, err := svc.Report(context.Background(), runID, "MAT0025")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)
	assert.Equal(t, 1, cacheRepo.sets)

	second, err := svc.Report(context.Background(), runID, "MAT0025")
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, cacheRepo.hits)
}

func TestAllocationServiceExportFormats(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})
	resp, err := svc.Run(context.Background(), dto.RunAllocationRequest{SemesterID: "2024.1"})
	require.NoError(t, err)
	runID := resp.Runs[0].RunID

	file, err := svc.Export(context.Background(), runID, dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "application/json", file.ContentType)
	var records []models.AllocationRecord
	require.NoError(t, json.Unmarshal(file.Body, &records))
	assert.Len(t, records, 3)

	file, err = svc.Export(context.Background(), runID, dto.ExportQuery{Format: "csv", DisciplineCode: "FIS0001"})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "sequence,demand_id"))

	file, err = svc.Export(context.Background(), runID, dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
	assert.Equal(t, "allocation-"+runID+".pdf", file.Filename)

	_, err = svc.Export(context.Background(), runID, dto.ExportQuery{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceGetRunFallsBackToRepository(t *testing.T) {
	svc, deps := newAllocationServiceFixture(t, allocationFixtureConfig{persist: true})
	deps.runs.created["stored"] = models.AllocationRun{ID: "stored", SemesterID: "2023.2", Status: models.AllocationRunStatusCompleted}

	run, err := svc.GetRun(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, "2023.2", run.SemesterID)

	_, err = svc.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServicePreviewCandidates(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})

	preview, err := svc.PreviewCandidates(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2M1", "2M2", "4M1", "4M2"}, preview.TimeBlocks)
	require.Len(t, preview.Candidates, 2)
	assert.Equal(t, "LAB1", preview.Candidates[0].RoomID)
	assert.True(t, preview.Candidates[0].Eligible)

	_, err = svc.PreviewCandidates(context.Background(), "d3")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.PreviewCandidates(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceDecodeSchedule(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})

	resp, err := svc.DecodeSchedule(dto.DecodeScheduleRequest{Schedule: "4M12 2M12"})
	require.NoError(t, err)
	assert.Equal(t, "24M12", resp.Canonical)
	assert.Equal(t, []string{"2M1", "2M2", "4M1", "4M2"}, resp.Codes)

	_, err = svc.DecodeSchedule(dto.DecodeScheduleRequest{Schedule: "9Z1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceJobWithoutDemandsAbortsWithoutRetry(t *testing.T) {
	svc, _ := newAllocationServiceFixture(t, allocationFixtureConfig{})
	cfg := svc.scoring.Current()
	run, err := svc.openRun(context.Background(), "1999.1", cfg, false)
	require.NoError(t, err)
	require.True(t, svc.locks.tryAcquire("1999.1"))

	err = svc.handleJob(context.Background(), jobs.Job{ID: run.ID, Type: allocationJobType, Payload: runJob{Run: run, Config: cfg}})
	require.NoError(t, err, "a missing semester must not be retried")

	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationRunStatusAborted, stored.Status)
	require.NotNil(t, stored.AbortReason)
	assert.Contains(t, *stored.AbortReason, "no demands found for semester 1999.1")
	assert.True(t, svc.locks.tryAcquire("1999.1"), "the semester lock must be released")
}

// --- Fixtures ---

type allocationFixtureConfig struct {
	persist        bool
	tx             txProvider
	noRooms        bool
	excludeCurrent bool
	cache          *CacheService
}

type allocationFixtureDeps struct {
	runs        *runStoreStub
	allocations *roomAllocationStoreStub
}

func newAllocationServiceFixture(t *testing.T, cfg allocationFixtureConfig) (*AllocationService, allocationFixtureDeps) {
	t.Helper()
	demands := demandStub{items: []models.Demand{
		{ID: "d1", SemesterID: "2024.1", DisciplineCode: "MAT0025", Section: "01", ProfessorsRaw: "Ana Souza", Enrollment: 40, RawSchedule: "24M12"},
		{ID: "d2", SemesterID: "2024.1", DisciplineCode: "FIS0001", Section: "01", ProfessorsRaw: "Bruno Lima", Enrollment: 30, RawSchedule: "35T34"},
		{ID: "d3", SemesterID: "2024.1", DisciplineCode: "QUI0001", Section: "01", ProfessorsRaw: "Carla Dias", Enrollment: 20, RawSchedule: "bad"},
		{ID: "d4", SemesterID: "2023.2", DisciplineCode: "MAT0025", Section: "01", ProfessorsRaw: "Ana Souza", Enrollment: 40, RawSchedule: "24M12"},
	}}
	rooms := roomStub{items: []models.Room{
		{ID: "A101", Capacity: 60, Characteristics: pq.StringArray{}},
		{ID: "LAB1", Capacity: 45, Characteristics: pq.StringArray{"projector"}},
	}}
	if cfg.noRooms {
		rooms.items = nil
	}
	prefs := preferenceStub{items: []models.Preference{
		{ID: "p1", ProfessorName: "Ana Souza", PreferredCharacteristic: strPtr("projector")},
	}}

	deps := allocationFixtureDeps{
		runs:        newRunStoreStub(),
		allocations: &roomAllocationStoreStub{replaced: map[string][]models.RoomAllocation{}},
	}
	var (
		runs        allocationRunStore
		allocations roomAllocationStore = deps.allocations
	)
	if cfg.persist {
		runs = deps.runs
	}

	scoring := scoringStub{cfg: models.ScoringConfig{
		Version: 7,
		Weights: models.ScoringWeights{
			PrioritySpecificRoomRequired:      4,
			PriorityMobilityConstraints:       3,
			PriorityRoomPreferences:           2,
			PriorityCharacteristicPreferences: 1,
			HardRuleCompliance:                20,
			CapacityAdequate:                  3,
			PreferredRoom:                     5,
			PreferredCharacteristic:           4,
			HistoricalFrequencyPerAllocation:  2,
			HistoricalFrequencyMaxCap:         12,
		},
		Rules: models.ScoringRules{
			RequireHardRulesForSoftPreferences: false,
			HistoricalExcludeCurrentSemester:   cfg.excludeCurrent,
		},
	}}

	svc := NewAllocationService(
		demands, rooms, hardRuleStub{items: []models.HardRule{}}, prefs,
		allocations, runs, cfg.tx, scoring,
		allocation.NewEngine(allocation.Options{}),
		cfg.cache, nil, nil,
		AllocationServiceConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond},
	)
	return svc, deps
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newAllocationTxMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func strPtr(v string) *string {
	return &v
}

type demandStub struct {
	items []models.Demand
}

func (s demandStub) ListBySemester(_ context.Context, semesterID string) ([]models.Demand, error) {
	var out []models.Demand
	for _, d := range s.items {
		if d.SemesterID == semesterID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s demandStub) FindByID(_ context.Context, id string) (*models.Demand, error) {
	for _, d := range s.items {
		if d.ID == id {
			demand := d
			return &demand, nil
		}
	}
	return nil, sql.ErrNoRows
}

type roomStub struct {
	items []models.Room
}

func (s roomStub) ListActive(context.Context) ([]models.Room, error) {
	return s.items, nil
}

type hardRuleStub struct {
	items []models.HardRule
}

func (s hardRuleStub) List(context.Context) ([]models.HardRule, error) {
	return s.items, nil
}

type preferenceStub struct {
	items []models.Preference
}

func (s preferenceStub) List(context.Context) ([]models.Preference, error) {
	return s.items, nil
}

type scoringStub struct {
	cfg models.ScoringConfig
}

func (s scoringStub) Current() models.ScoringConfig {
	return s.cfg
}

type roomAllocationStoreStub struct {
	mu         sync.Mutex
	history    []historyQuery
	replaced   map[string][]models.RoomAllocation
	replaceErr error
}

type historyQuery struct {
	semesterID     string
	includeCurrent bool
}

func (s *roomAllocationStoreStub) HistoricalCounts(_ context.Context, semesterID string, includeCurrent bool) ([]models.HistoricalAllocationCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, historyQuery{semesterID: semesterID, includeCurrent: includeCurrent})
	return nil, nil
}

func (s *roomAllocationStoreStub) ReplaceForSemester(_ context.Context, _ sqlx.ExtContext, semesterID string, rows []models.RoomAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced[semesterID] = rows
	return nil
}

type runStoreStub struct {
	mu        sync.Mutex
	created   map[string]models.AllocationRun
	finished  map[string]repository.FinishRunParams
	decisions map[string][]models.AllocationDecision
}

func newRunStoreStub() *runStoreStub {
	return &runStoreStub{
		created:   map[string]models.AllocationRun{},
		finished:  map[string]repository.FinishRunParams{},
		decisions: map[string][]models.AllocationDecision{},
	}
}

func (s *runStoreStub) Create(_ context.Context, _ sqlx.ExtContext, run *models.AllocationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created[run.ID] = *run
	return nil
}

func (s *runStoreStub) Finish(_ context.Context, _ sqlx.ExtContext, id string, params repository.FinishRunParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[id] = params
	return nil
}

func (s *runStoreStub) FindByID(_ context.Context, id string) (*models.AllocationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.created[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &run, nil
}

func (s *runStoreStub) List(_ context.Context, filter repository.AllocationRunFilter) ([]models.AllocationRun, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var runs []models.AllocationRun
	for _, run := range s.created {
		if filter.SemesterID == "" || run.SemesterID == filter.SemesterID {
			runs = append(runs, run)
		}
	}
	return runs, len(runs), nil
}

func (s *runStoreStub) InsertDecisions(_ context.Context, _ sqlx.ExtContext, decisions []models.AllocationDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range decisions {
		s.decisions[d.RunID] = append(s.decisions[d.RunID], d)
	}
	return nil
}

func (s *runStoreStub) ListDecisions(_ context.Context, runID string, _ repository.DecisionFilter) ([]models.AllocationDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decisions[runID], nil
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
	hits  int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.sets++
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}
