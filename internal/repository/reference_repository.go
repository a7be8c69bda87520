package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// RoomRepository reads the room catalogue.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListActive returns rooms open for allocation ordered by id.
func (r *RoomRepository) ListActive(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, building, capacity, characteristics, room_type FROM rooms WHERE active = TRUE ORDER BY id`
	rooms := []models.Room{}
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// HardRuleRepository reads mandatory allocation constraints.
type HardRuleRepository struct {
	db *sqlx.DB
}

// NewHardRuleRepository constructs the repository.
func NewHardRuleRepository(db *sqlx.DB) *HardRuleRepository {
	return &HardRuleRepository{db: db}
}

// List returns every hard rule. An empty table yields an empty, non-nil slice.
func (r *HardRuleRepository) List(ctx context.Context) ([]models.HardRule, error) {
	const query = `SELECT id, kind, scope, scope_target, target_room_id, target_characteristic FROM hard_rules ORDER BY id`
	rules := []models.HardRule{}
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list hard rules: %w", err)
	}
	return rules, nil
}

// PreferenceRepository reads professor soft preferences.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// List returns every professor preference. An empty table yields an empty, non-nil slice.
func (r *PreferenceRepository) List(ctx context.Context) ([]models.Preference, error) {
	const query = `SELECT id, professor_name, preferred_room_id, preferred_characteristic FROM professor_preferences ORDER BY id`
	prefs := []models.Preference{}
	if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
		return nil, fmt.Errorf("list professor preferences: %w", err)
	}
	return prefs, nil
}
