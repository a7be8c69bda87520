package models

import "fmt"

// HardRuleKind enumerates mandatory constraints.
type HardRuleKind string

const (
	HardRuleSpecificRoom           HardRuleKind = "specific-room-required"
	HardRuleMobility               HardRuleKind = "mobility-constraint"
	HardRuleRequiredCharacteristic HardRuleKind = "required-characteristic"
)

// RuleScope states what a hard rule is attached to.
type RuleScope string

const (
	RuleScopeDemand    RuleScope = "demand"
	RuleScopeProfessor RuleScope = "professor"
)

// HardRule is a mandatory constraint scoped to a demand or to a professor.
type HardRule struct {
	ID                   string       `db:"id" json:"id"`
	Kind                 HardRuleKind `db:"kind" json:"kind"`
	Scope                RuleScope    `db:"scope" json:"scope"`
	ScopeTarget          string       `db:"scope_target" json:"scope_target"`
	TargetRoomID         *string      `db:"target_room_id" json:"target_room_id,omitempty"`
	TargetCharacteristic *string      `db:"target_characteristic" json:"target_characteristic,omitempty"`
}

// AppliesTo reports whether the rule constrains the given demand.
func (r HardRule) AppliesTo(d Demand) bool {
	switch r.Scope {
	case RuleScopeDemand:
		return r.ScopeTarget == d.ID
	case RuleScopeProfessor:
		return d.HasProfessor(r.ScopeTarget)
	default:
		return false
	}
}

// Characteristic returns the tag the rule requires, applying the mobility default.
func (r HardRule) Characteristic() string {
	if r.TargetCharacteristic != nil && *r.TargetCharacteristic != "" {
		return *r.TargetCharacteristic
	}
	if r.Kind == HardRuleMobility {
		return DefaultMobilityCharacteristic
	}
	return ""
}

// Label is a short human readable form used in decision traces.
func (r HardRule) Label() string {
	switch r.Kind {
	case HardRuleSpecificRoom:
		return fmt.Sprintf("%s:%s", r.Kind, derefString(r.TargetRoomID))
	default:
		return fmt.Sprintf("%s:%s", r.Kind, r.Characteristic())
	}
}

// Preference is a soft professor preference for a room or a characteristic.
type Preference struct {
	ID                      string  `db:"id" json:"id"`
	ProfessorName           string  `db:"professor_name" json:"professor_name"`
	PreferredRoomID         *string `db:"preferred_room_id" json:"preferred_room_id,omitempty"`
	PreferredCharacteristic *string `db:"preferred_characteristic" json:"preferred_characteristic,omitempty"`
}

// AppliesTo reports whether one of the demand's professors holds the preference.
func (p Preference) AppliesTo(d Demand) bool {
	return d.HasProfessor(p.ProfessorName)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
