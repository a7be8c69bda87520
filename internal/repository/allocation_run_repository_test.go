package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

var runRowColumns = []string{"id", "semester_id", "status", "config_version", "config_snapshot", "demand_count", "allocated_count", "abort_reason", "started_at", "finished_at"}

func TestAllocationRunRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocation_runs")).
		WithArgs(sqlmock.AnyArg(), "2024.1", string(models.AllocationRunStatusRunning), int64(3), sqlmock.AnyArg(), 0, 0, nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.AllocationRun{SemesterID: "2024.1", ConfigVersion: 3}
	require.NoError(t, repo.Create(context.Background(), nil, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.AllocationRunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRunRepositoryCreateRequiresSemester(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	assert.Error(t, repo.Create(context.Background(), nil, &models.AllocationRun{}))
	assert.Error(t, repo.Create(context.Background(), nil, nil))
}

func TestAllocationRunRepositoryFinish(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	finishedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocation_runs")).
		WithArgs(string(models.AllocationRunStatusCompleted), 10, 8, nil, finishedAt, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finish(context.Background(), nil, "run-1", FinishRunParams{
		Status:         models.AllocationRunStatusCompleted,
		DemandCount:    10,
		AllocatedCount: 8,
		FinishedAt:     finishedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRunRepositoryFinishNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocation_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Finish(context.Background(), nil, "missing", FinishRunParams{Status: models.AllocationRunStatusAborted})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRunRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM allocation_runs WHERE semester_id = $1 AND status = $2")).
		WithArgs("2024.1", string(models.AllocationRunStatusCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY started_at DESC, id LIMIT $3 OFFSET $4")).
		WithArgs("2024.1", string(models.AllocationRunStatusCompleted), 10, 0).
		WillReturnRows(sqlmock.NewRows(runRowColumns).
			AddRow("run-1", "2024.1", "COMPLETED", 2, []byte(`{}`), 5, 4, nil, now, now))

	runs, total, err := repo.List(context.Background(), AllocationRunFilter{
		SemesterID: "2024.1",
		Status:     models.AllocationRunStatusCompleted,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(2), runs[0].ConfigVersion)
	require.NotNil(t, runs[0].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRunRepositoryDecisions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRunRepository(db)

	room := "A101"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocation_decisions")).
		WithArgs("run-1", 1, "d1", "MAT0025", true, "A101", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocation_decisions")).
		WithArgs("run-1", 2, "d2", "FIS0001", false, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertDecisions(context.Background(), nil, []models.AllocationDecision{
		{RunID: "run-1", Sequence: 1, DemandID: "d1", DisciplineCode: "MAT0025", Allocated: true, RoomID: &room, Record: types.JSONText(`{}`)},
		{RunID: "run-1", Sequence: 2, DemandID: "d2", DisciplineCode: "FIS0001", Record: types.JSONText(`{}`)},
	})
	require.NoError(t, err)

	allocated := false
	mock.ExpectQuery(regexp.QuoteMeta("WHERE run_id = $1 AND discipline_code = $2 AND allocated = $3 ORDER BY sequence")).
		WithArgs("run-1", "FIS0001", false).
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "sequence", "demand_id", "discipline_code", "allocated", "room_id", "record"}).
			AddRow("run-1", 2, "d2", "FIS0001", false, nil, []byte(`{"sequence":2}`)))

	decisions, err := repo.ListDecisions(context.Background(), "run-1", DecisionFilter{DisciplineCode: "FIS0001", Allocated: &allocated})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Nil(t, decisions[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
