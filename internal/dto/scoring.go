package dto

// UpdateScoringOverridesRequest carries partial weights and rules written to
// the user scoring document. Values stay untyped so type errors are reported
// per key instead of failing the whole bind.
type UpdateScoringOverridesRequest struct {
	Weights map[string]interface{} `json:"weights"`
	Rules   map[string]interface{} `json:"rules"`
}

// Document converts the request into a scoring document fragment.
func (r UpdateScoringOverridesRequest) Document() map[string]interface{} {
	doc := make(map[string]interface{}, 2)
	if len(r.Weights) > 0 {
		doc["weights"] = r.Weights
	}
	if len(r.Rules) > 0 {
		doc["rules"] = r.Rules
	}
	return doc
}
