package allocation

import (
	"fmt"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// HardRuleResult is the room pool left after mandatory constraints.
type HardRuleResult struct {
	Eligible  []models.Room
	Satisfied []string
}

// ApplicableRules returns the rules scoped to the demand or one of its professors.
func ApplicableRules(demand models.Demand, rules []models.HardRule) []models.HardRule {
	var applicable []models.HardRule
	for _, rule := range rules {
		if rule.AppliesTo(demand) {
			applicable = append(applicable, rule)
		}
	}
	return applicable
}

// EvaluateHardRules keeps the rooms that satisfy every rule. Rules are
// AND-combined and a single violation removes the room.
func EvaluateHardRules(rules []models.HardRule, rooms []models.Room) HardRuleResult {
	result := HardRuleResult{}
	for _, room := range rooms {
		if len(FailedRules(rules, room)) == 0 {
			result.Eligible = append(result.Eligible, room)
		}
	}
	if len(result.Eligible) > 0 {
		for _, rule := range rules {
			result.Satisfied = append(result.Satisfied, rule.Label())
		}
	}
	return result
}

// FailedRules lists the labels of the rules the room violates.
func FailedRules(rules []models.HardRule, room models.Room) []string {
	var failed []string
	for _, rule := range rules {
		if !RoomSatisfies(rule, room) {
			failed = append(failed, rule.Label())
		}
	}
	return failed
}

// RoomSatisfies evaluates a single rule against a room.
func RoomSatisfies(rule models.HardRule, room models.Room) bool {
	switch rule.Kind {
	case models.HardRuleSpecificRoom:
		return rule.TargetRoomID != nil && *rule.TargetRoomID == room.ID
	case models.HardRuleMobility, models.HardRuleRequiredCharacteristic:
		return room.HasCharacteristic(rule.Characteristic())
	default:
		return false
	}
}

func validateHardRule(rule models.HardRule) error {
	switch rule.Scope {
	case models.RuleScopeDemand, models.RuleScopeProfessor:
	default:
		return fmt.Errorf("%w: hard rule %s has unsupported scope %q", ErrInvalidReferenceData, rule.ID, rule.Scope)
	}
	switch rule.Kind {
	case models.HardRuleSpecificRoom:
		if rule.TargetRoomID == nil || *rule.TargetRoomID == "" {
			return fmt.Errorf("%w: hard rule %s requires a target room", ErrInvalidReferenceData, rule.ID)
		}
	case models.HardRuleMobility:
	case models.HardRuleRequiredCharacteristic:
		if rule.Characteristic() == "" {
			return fmt.Errorf("%w: hard rule %s requires a target characteristic", ErrInvalidReferenceData, rule.ID)
		}
	default:
		return fmt.Errorf("%w: hard rule %s has unsupported kind %q", ErrInvalidReferenceData, rule.ID, rule.Kind)
	}
	return nil
}
