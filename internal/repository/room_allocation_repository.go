package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// RoomAllocationRepository persists committed allocations and serves the
// historical frequency feed.
type RoomAllocationRepository struct {
	db *sqlx.DB
}

// NewRoomAllocationRepository constructs the repository.
func NewRoomAllocationRepository(db *sqlx.DB) *RoomAllocationRepository {
	return &RoomAllocationRepository{db: db}
}

func (r *RoomAllocationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// HistoricalCounts counts allocations per discipline and room from semesters
// before semesterID. includeCurrent also counts semesterID itself.
func (r *RoomAllocationRepository) HistoricalCounts(ctx context.Context, semesterID string, includeCurrent bool) ([]models.HistoricalAllocationCount, error) {
	const query = `SELECT discipline_code, room_id, COUNT(*) AS allocation_count
FROM room_allocations
WHERE semester_id < $1 OR ($2 AND semester_id = $1)
GROUP BY discipline_code, room_id
ORDER BY discipline_code, room_id`
	var counts []models.HistoricalAllocationCount
	if err := r.db.SelectContext(ctx, &counts, query, semesterID, includeCurrent); err != nil {
		return nil, fmt.Errorf("historical allocation counts: %w", err)
	}
	return counts, nil
}

// ReplaceForSemester swaps the semester's committed allocations for rows.
func (r *RoomAllocationRepository) ReplaceForSemester(ctx context.Context, exec sqlx.ExtContext, semesterID string, rows []models.RoomAllocation) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM room_allocations WHERE semester_id = $1`, semesterID); err != nil {
		return fmt.Errorf("clear room allocations: %w", err)
	}

	const insertQuery = `
INSERT INTO room_allocations (id, run_id, semester_id, demand_id, discipline_code, room_id, time_blocks)
VALUES (:id, :run_id, :semester_id, :demand_id, :discipline_code, :room_id, :time_blocks)`
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		rows[i].SemesterID = semesterID
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, rows[i]); err != nil {
			return fmt.Errorf("insert room allocation for demand %s: %w", rows[i].DemandID, err)
		}
	}
	return nil
}

// ListBySemester returns the committed allocations of a semester.
func (r *RoomAllocationRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.RoomAllocation, error) {
	const query = `SELECT id, run_id, semester_id, demand_id, discipline_code, room_id, time_blocks
FROM room_allocations WHERE semester_id = $1 ORDER BY room_id, demand_id`
	var rows []models.RoomAllocation
	if err := r.db.SelectContext(ctx, &rows, query, semesterID); err != nil {
		return nil, fmt.Errorf("list room allocations: %w", err)
	}
	return rows, nil
}
