package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

func TestEvaluateHardRulesCombinesRules(t *testing.T) {
	rooms := []models.Room{
		room("A", 40, "accessible", "projector"),
		room("B", 40, "accessible"),
		room("C", 40, "projector"),
	}
	rules := []models.HardRule{
		{ID: "r1", Kind: models.HardRuleMobility, Scope: models.RuleScopeDemand, ScopeTarget: "d1"},
		{ID: "r2", Kind: models.HardRuleRequiredCharacteristic, Scope: models.RuleScopeDemand, ScopeTarget: "d1", TargetCharacteristic: strPtr("Projector")},
	}

	result := EvaluateHardRules(rules, rooms)
	require.Len(t, result.Eligible, 1)
	assert.Equal(t, "A", result.Eligible[0].ID)
	assert.Equal(t, []string{"mobility-constraint:accessible", "required-characteristic:Projector"}, result.Satisfied)

	assert.Equal(t, []string{"required-characteristic:Projector"}, FailedRules(rules, rooms[1]))
}

func TestEvaluateHardRulesSpecificRoom(t *testing.T) {
	rooms := []models.Room{room("A", 10), room("B", 10)}
	result := EvaluateHardRules([]models.HardRule{specificRoomRule("r1", "d1", "B")}, rooms)
	require.Len(t, result.Eligible, 1)
	assert.Equal(t, "B", result.Eligible[0].ID)

	none := EvaluateHardRules([]models.HardRule{specificRoomRule("r1", "d1", "Z")}, rooms)
	assert.Empty(t, none.Eligible)
	assert.Empty(t, none.Satisfied)
}

func TestEvaluateHardRulesWithoutRulesKeepsPool(t *testing.T) {
	rooms := []models.Room{room("A", 10), room("B", 10)}
	result := EvaluateHardRules(nil, rooms)
	assert.Len(t, result.Eligible, 2)
	assert.Empty(t, result.Satisfied)
}

func TestApplicableRulesMatchesScope(t *testing.T) {
	d := demand("d1", "MAT001", "01", "Ana Souza, Rui Lima", 10, "2M1")
	rules := []models.HardRule{
		specificRoomRule("r1", "d1", "A"),
		specificRoomRule("r2", "d2", "A"),
		{ID: "r3", Kind: models.HardRuleMobility, Scope: models.RuleScopeProfessor, ScopeTarget: "RUI LIMA"},
		{ID: "r4", Kind: models.HardRuleMobility, Scope: models.RuleScopeProfessor, ScopeTarget: "Outra Pessoa"},
	}
	applicable := ApplicableRules(d, rules)
	require.Len(t, applicable, 2)
	assert.Equal(t, "r1", applicable[0].ID)
	assert.Equal(t, "r3", applicable[1].ID)
}

func TestValidateHardRuleRejectsUnknownValues(t *testing.T) {
	cases := []models.HardRule{
		{ID: "r1", Kind: "teleport", Scope: models.RuleScopeDemand},
		{ID: "r2", Kind: models.HardRuleMobility, Scope: "building"},
		{ID: "r3", Kind: models.HardRuleSpecificRoom, Scope: models.RuleScopeDemand},
		{ID: "r4", Kind: models.HardRuleRequiredCharacteristic, Scope: models.RuleScopeDemand},
	}
	for _, rule := range cases {
		err := validateHardRule(rule)
		require.Error(t, err, rule.ID)
		assert.True(t, errors.Is(err, ErrInvalidReferenceData), rule.ID)
	}
	assert.NoError(t, validateHardRule(models.HardRule{ID: "ok", Kind: models.HardRuleMobility, Scope: models.RuleScopeProfessor}))
}
