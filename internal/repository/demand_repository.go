package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const demandColumns = `id, semester, codigo_disciplina, nome_disciplina, professores, turma, vagas, horario_sigaa_bruto, nivel`

// DemandRepository reads imported course-offering demands.
type DemandRepository struct {
	db *sqlx.DB
}

// NewDemandRepository constructs the repository.
func NewDemandRepository(db *sqlx.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// ListBySemester returns every demand of the semester ordered by id.
func (r *DemandRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.Demand, error) {
	query := `SELECT ` + demandColumns + ` FROM demands WHERE semester = $1 ORDER BY id`
	var demands []models.Demand
	if err := r.db.SelectContext(ctx, &demands, query, semesterID); err != nil {
		return nil, fmt.Errorf("list demands: %w", err)
	}
	return demands, nil
}

// FindByID loads a single demand.
func (r *DemandRepository) FindByID(ctx context.Context, id string) (*models.Demand, error) {
	query := `SELECT ` + demandColumns + ` FROM demands WHERE id = $1`
	var demand models.Demand
	if err := r.db.GetContext(ctx, &demand, query, id); err != nil {
		return nil, err
	}
	return &demand, nil
}

// ListSemesters returns the distinct semesters that have demands.
func (r *DemandRepository) ListSemesters(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT semester FROM demands ORDER BY semester`
	var semesters []string
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}
