package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const allocationRunColumns = `id, semester_id, status, config_version, config_snapshot, demand_count, allocated_count, abort_reason, started_at, finished_at`

// AllocationRunFilter narrows run listings.
type AllocationRunFilter struct {
	SemesterID string
	Status     models.AllocationRunStatus
	Limit      int
	Offset     int
}

// DecisionFilter narrows decision listings.
type DecisionFilter struct {
	DisciplineCode string
	Allocated      *bool
}

// FinishRunParams carries the closing state of a run.
type FinishRunParams struct {
	Status         models.AllocationRunStatus
	DemandCount    int
	AllocatedCount int
	AbortReason    *string
	FinishedAt     time.Time
}

// AllocationRunRepository persists run headers and their decision logs.
type AllocationRunRepository struct {
	db *sqlx.DB
}

// NewAllocationRunRepository constructs the repository.
func NewAllocationRunRepository(db *sqlx.DB) *AllocationRunRepository {
	return &AllocationRunRepository{db: db}
}

func (r *AllocationRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a run header, assigning an id and start time when missing.
func (r *AllocationRunRepository) Create(ctx context.Context, exec sqlx.ExtContext, run *models.AllocationRun) error {
	if run == nil {
		return fmt.Errorf("allocation run payload is nil")
	}
	if run.SemesterID == "" {
		return fmt.Errorf("semester_id is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.AllocationRunStatusRunning
	}
	if len(run.ConfigSnapshot) == 0 {
		run.ConfigSnapshot = types.JSONText(`{}`)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO allocation_runs (` + allocationRunColumns + `)
VALUES (:id, :semester_id, :status, :config_version, :config_snapshot, :demand_count, :allocated_count, :abort_reason, :started_at, :finished_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("insert allocation run: %w", err)
	}
	return nil
}

// Finish records the terminal status of a run.
func (r *AllocationRunRepository) Finish(ctx context.Context, exec sqlx.ExtContext, id string, params FinishRunParams) error {
	finishedAt := params.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	const query = `UPDATE allocation_runs
SET status = $1, demand_count = $2, allocated_count = $3, abort_reason = $4, finished_at = $5
WHERE id = $6`
	result, err := r.exec(exec).ExecContext(ctx, query, params.Status, params.DemandCount, params.AllocatedCount, params.AbortReason, finishedAt, id)
	if err != nil {
		return fmt.Errorf("finish allocation run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("allocation run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a run header.
func (r *AllocationRunRepository) FindByID(ctx context.Context, id string) (*models.AllocationRun, error) {
	query := `SELECT ` + allocationRunColumns + ` FROM allocation_runs WHERE id = $1`
	var run models.AllocationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first along with the unpaginated total.
func (r *AllocationRunRepository) List(ctx context.Context, filter AllocationRunFilter) ([]models.AllocationRun, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.SemesterID != "" {
		args = append(args, filter.SemesterID)
		conditions = append(conditions, fmt.Sprintf("semester_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM allocation_runs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocation runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM allocation_runs%s ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d`,
		allocationRunColumns, where, len(args)-1, len(args))

	var runs []models.AllocationRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocation runs: %w", err)
	}
	return runs, total, nil
}

// InsertDecisions stores the decision log of a run.
func (r *AllocationRunRepository) InsertDecisions(ctx context.Context, exec sqlx.ExtContext, decisions []models.AllocationDecision) error {
	const query = `
INSERT INTO allocation_decisions (run_id, sequence, demand_id, discipline_code, allocated, room_id, record)
VALUES (:run_id, :sequence, :demand_id, :discipline_code, :allocated, :room_id, :record)`
	target := r.exec(exec)
	for _, decision := range decisions {
		if _, err := sqlx.NamedExecContext(ctx, target, query, decision); err != nil {
			return fmt.Errorf("insert allocation decision %d: %w", decision.Sequence, err)
		}
	}
	return nil
}

// ListDecisions returns a run's decisions in sequence order.
func (r *AllocationRunRepository) ListDecisions(ctx context.Context, runID string, filter DecisionFilter) ([]models.AllocationDecision, error) {
	args := []interface{}{runID}
	query := `SELECT run_id, sequence, demand_id, discipline_code, allocated, room_id, record FROM allocation_decisions WHERE run_id = $1`
	if filter.DisciplineCode != "" {
		args = append(args, filter.DisciplineCode)
		query += fmt.Sprintf(" AND discipline_code = $%d", len(args))
	}
	if filter.Allocated != nil {
		args = append(args, *filter.Allocated)
		query += fmt.Sprintf(" AND allocated = $%d", len(args))
	}
	query += " ORDER BY sequence"

	var decisions []models.AllocationDecision
	if err := r.db.SelectContext(ctx, &decisions, query, args...); err != nil {
		return nil, fmt.Errorf("list allocation decisions: %w", err)
	}
	return decisions, nil
}
