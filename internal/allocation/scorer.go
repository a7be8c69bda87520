package allocation

import (
	"sort"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// Candidate is a room scored for a demand.
type Candidate struct {
	Room            models.Room
	Score           models.ScoringBreakdown
	HistoricalCount int
	Preferences     []string
}

// Surplus is room capacity minus enrollment; negative when the room is too small.
func (c Candidate) Surplus(enrollment int) int {
	return c.Room.Capacity - enrollment
}

// Scorer computes soft scores from one configuration snapshot.
type Scorer struct {
	weights models.ScoringWeights
	rules   models.ScoringRules
}

// NewScorer binds a scorer to a configuration snapshot.
func NewScorer(cfg models.ScoringConfig) Scorer {
	return Scorer{weights: cfg.Weights, rules: cfg.Rules}
}

// ScoreInput describes one demand/room pair.
type ScoreInput struct {
	Demand          models.Demand
	Room            models.Room
	Preferences     []models.Preference
	HistoricalCount int
	// HasHardRules is true when at least one hard rule applies to the demand.
	HasHardRules bool
	// PassedHardRules is true when the room survived hard-rule filtering.
	PassedHardRules bool
}

// Score computes the additive breakdown. Inadequate capacity earns no capacity
// points but never excludes the room.
func (s Scorer) Score(in ScoreInput) Candidate {
	var breakdown models.ScoringBreakdown
	if in.Room.Capacity >= in.Demand.Enrollment {
		breakdown.CapacityPoints = s.weights.CapacityAdequate
	}
	if in.HasHardRules && in.PassedHardRules {
		breakdown.HardRulePoints = s.weights.HardRuleCompliance
	}

	var satisfied []string
	if in.PassedHardRules || !s.rules.RequireHardRulesForSoftPreferences {
		roomMatched, tagMatched := false, false
		for _, pref := range in.Preferences {
			if !roomMatched && pref.PreferredRoomID != nil && *pref.PreferredRoomID == in.Room.ID {
				roomMatched = true
				satisfied = append(satisfied, "preferred-room:"+in.Room.ID)
			}
			if !tagMatched && pref.PreferredCharacteristic != nil && in.Room.HasCharacteristic(*pref.PreferredCharacteristic) {
				tagMatched = true
				satisfied = append(satisfied, "preferred-characteristic:"+*pref.PreferredCharacteristic)
			}
		}
		if roomMatched {
			breakdown.SoftPreferencePoints += s.weights.PreferredRoom
		}
		if tagMatched {
			breakdown.SoftPreferencePoints += s.weights.PreferredCharacteristic
		}
	}

	breakdown.HistoricalPoints = s.weights.HistoricalBonus(in.HistoricalCount)
	breakdown.Total = breakdown.CapacityPoints + breakdown.HardRulePoints + breakdown.SoftPreferencePoints + breakdown.HistoricalPoints

	return Candidate{
		Room:            in.Room,
		Score:           breakdown,
		HistoricalCount: in.HistoricalCount,
		Preferences:     satisfied,
	}
}

// Rank scores every eligible room and orders the result best first.
func (s Scorer) Rank(demand models.Demand, rooms []models.Room, prefs []models.Preference, history models.HistoricalCounts, hasHardRules bool) []Candidate {
	candidates := make([]Candidate, 0, len(rooms))
	for _, room := range rooms {
		candidates = append(candidates, s.Score(ScoreInput{
			Demand:          demand,
			Room:            room,
			Preferences:     prefs,
			HistoricalCount: history.Count(demand.DisciplineCode, room.ID),
			HasHardRules:    hasHardRules,
			PassedHardRules: true,
		}))
	}
	SortCandidates(candidates, demand.Enrollment)
	return candidates
}

// SortCandidates orders by total score descending, then by the tightest
// adequate fit (smallest non-negative surplus), then room id. Rooms that are
// too small rank after adequate rooms with the same score, largest first.
func SortCandidates(candidates []Candidate, enrollment int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		sa, sb := a.Surplus(enrollment), b.Surplus(enrollment)
		if (sa >= 0) != (sb >= 0) {
			return sa >= 0
		}
		if sa != sb {
			if sa >= 0 {
				return sa < sb
			}
			return sa > sb
		}
		return a.Room.ID < b.Room.ID
	})
}
