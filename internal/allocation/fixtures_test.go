package allocation

import (
	"github.com/lib/pq"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

func testConfig() models.ScoringConfig {
	return models.ScoringConfig{
		Version: 1,
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
			RequireHardRulesForSoftPreferences: true,
			HistoricalExcludeCurrentSemester:   true,
		},
	}
}

func room(id string, capacity int, tags ...string) models.Room {
	return models.Room{ID: id, Name: id, Capacity: capacity, Characteristics: pq.StringArray(tags)}
}

func demand(id, code, section, professors string, enrollment int, schedule string) models.Demand {
	return models.Demand{
		ID:             id,
		SemesterID:     "2024.1",
		DisciplineCode: code,
		DisciplineName: code,
		ProfessorsRaw:  professors,
		Section:        section,
		Enrollment:     enrollment,
		RawSchedule:    schedule,
	}
}

func strPtr(v string) *string {
	return &v
}

func specificRoomRule(id, demandID, roomID string) models.HardRule {
	return models.HardRule{
		ID:           id,
		Kind:         models.HardRuleSpecificRoom,
		Scope:        models.RuleScopeDemand,
		ScopeTarget:  demandID,
		TargetRoomID: strPtr(roomID),
	}
}

func emptyReference(rooms ...models.Room) ReferenceData {
	return ReferenceData{
		Rooms:       rooms,
		HardRules:   []models.HardRule{},
		Preferences: []models.Preference{},
	}
}
