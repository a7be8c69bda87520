package allocation

import (
	"sort"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// PrioritizedDemand is a demand with the rules and preferences that apply to it.
type PrioritizedDemand struct {
	Demand      models.Demand
	Priority    int
	Rules       []models.HardRule
	Preferences []models.Preference
}

// PriorityOf returns the highest tier the demand qualifies for, or 0.
func PriorityOf(rules []models.HardRule, prefs []models.Preference, weights models.ScoringWeights) int {
	priority := 0
	raise := func(v int) {
		if v > priority {
			priority = v
		}
	}
	for _, rule := range rules {
		switch rule.Kind {
		case models.HardRuleSpecificRoom:
			raise(weights.PrioritySpecificRoomRequired)
		case models.HardRuleMobility:
			raise(weights.PriorityMobilityConstraints)
		}
	}
	for _, pref := range prefs {
		if pref.PreferredRoomID != nil && *pref.PreferredRoomID != "" {
			raise(weights.PriorityRoomPreferences)
		}
		if pref.PreferredCharacteristic != nil && *pref.PreferredCharacteristic != "" {
			raise(weights.PriorityCharacteristicPreferences)
		}
	}
	return priority
}

// Prioritize attaches rules and preferences to every demand and orders the
// queue: priority descending, then discipline code, section and id ascending.
func Prioritize(demands []models.Demand, rules []models.HardRule, prefs []models.Preference, weights models.ScoringWeights) []PrioritizedDemand {
	queue := make([]PrioritizedDemand, 0, len(demands))
	for _, demand := range demands {
		applicableRules := ApplicableRules(demand, rules)
		var applicablePrefs []models.Preference
		for _, pref := range prefs {
			if pref.AppliesTo(demand) {
				applicablePrefs = append(applicablePrefs, pref)
			}
		}
		queue = append(queue, PrioritizedDemand{
			Demand:      demand,
			Priority:    PriorityOf(applicableRules, applicablePrefs, weights),
			Rules:       applicableRules,
			Preferences: applicablePrefs,
		})
	}
	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Demand.DisciplineCode != b.Demand.DisciplineCode {
			return a.Demand.DisciplineCode < b.Demand.DisciplineCode
		}
		if a.Demand.Section != b.Demand.Section {
			return a.Demand.Section < b.Demand.Section
		}
		return a.Demand.ID < b.Demand.ID
	})
	return queue
}
