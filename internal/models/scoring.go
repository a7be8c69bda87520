package models

import "time"

// ScoringWeights holds the integer weights used for prioritisation and scoring.
type ScoringWeights struct {
	PrioritySpecificRoomRequired      int `json:"PRIORITY_SPECIFIC_ROOM_REQUIRED" koanf:"PRIORITY_SPECIFIC_ROOM_REQUIRED" validate:"min=0"`
	PriorityMobilityConstraints       int `json:"PRIORITY_MOBILITY_CONSTRAINTS" koanf:"PRIORITY_MOBILITY_CONSTRAINTS" validate:"min=0"`
	PriorityRoomPreferences           int `json:"PRIORITY_ROOM_PREFERENCES" koanf:"PRIORITY_ROOM_PREFERENCES" validate:"min=0"`
	PriorityCharacteristicPreferences int `json:"PRIORITY_CHARACTERISTIC_PREFERENCES" koanf:"PRIORITY_CHARACTERISTIC_PREFERENCES" validate:"min=0"`
	HardRuleCompliance                int `json:"HARD_RULE_COMPLIANCE" koanf:"HARD_RULE_COMPLIANCE" validate:"min=0"`
	CapacityAdequate                  int `json:"CAPACITY_ADEQUATE" koanf:"CAPACITY_ADEQUATE" validate:"min=0"`
	PreferredRoom                     int `json:"PREFERRED_ROOM" koanf:"PREFERRED_ROOM" validate:"min=0"`
	PreferredCharacteristic           int `json:"PREFERRED_CHARACTERISTIC" koanf:"PREFERRED_CHARACTERISTIC" validate:"min=0"`
	HistoricalFrequencyPerAllocation  int `json:"HISTORICAL_FREQUENCY_PER_ALLOCATION" koanf:"HISTORICAL_FREQUENCY_PER_ALLOCATION" validate:"min=0"`
	HistoricalFrequencyMaxCap         int `json:"HISTORICAL_FREQUENCY_MAX_CAP" koanf:"HISTORICAL_FREQUENCY_MAX_CAP" validate:"min=0"`
}

// ScoringRules holds boolean switches for the scorer.
type ScoringRules struct {
	RequireHardRulesForSoftPreferences bool `json:"REQUIRE_HARD_RULES_FOR_SOFT_PREFERENCES" koanf:"REQUIRE_HARD_RULES_FOR_SOFT_PREFERENCES"`
	HistoricalExcludeCurrentSemester   bool `json:"HISTORICAL_EXCLUDE_CURRENT_SEMESTER" koanf:"HISTORICAL_EXCLUDE_CURRENT_SEMESTER"`
}

// ScoringConfig is an immutable, versioned snapshot of weights and rules.
// A reload produces a new value; runs keep the snapshot they started with.
type ScoringConfig struct {
	Version  int64          `json:"version"`
	Weights  ScoringWeights `json:"weights" validate:"required"`
	Rules    ScoringRules   `json:"rules"`
	Sources  []string       `json:"sources,omitempty"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// HistoricalBonus is min(count * per-allocation, cap), never negative.
func (w ScoringWeights) HistoricalBonus(count int) int {
	if count <= 0 {
		return 0
	}
	bonus := count * w.HistoricalFrequencyPerAllocation
	if bonus > w.HistoricalFrequencyMaxCap {
		return w.HistoricalFrequencyMaxCap
	}
	return bonus
}
