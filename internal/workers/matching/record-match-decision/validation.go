// internal/workers/matching/record-match-decision/validation.go
package recordmatchdecision

import "business-matching-workers/internal/common/validation"

// GetInputSchema checks shape only. Rating range and status values are
// checked by the store so they surface as INVALID_MATCH_TRANSITION.
func GetInputSchema() validation.Schema {
	schema := validation.Object([]string{"decision", "role"}, map[string]validation.Schema{
		"matchId":     {"type": "string"},
		"pmiId":       {"type": "string"},
		"partnerId":   {"type": "string"},
		"decision":    validation.Enum("accept", "reject", "update"),
		"role":        validation.Enum("pmi", "partner"),
		"notes":       {"type": "string"},
		"rating":      {"type": "integer"},
		"status":      {"type": "string"},
		"matchScore":  {"type": "number"},
		"matchReason": {"type": "string"},
	})
	schema["anyOf"] = []interface{}{
		map[string]interface{}{
			"required":   []interface{}{"matchId"},
			"properties": map[string]interface{}{"matchId": map[string]interface{}{"minLength": 1}},
		},
		map[string]interface{}{
			"required": []interface{}{"pmiId", "partnerId"},
			"properties": map[string]interface{}{
				"pmiId":     map[string]interface{}{"minLength": 1},
				"partnerId": map[string]interface{}{"minLength": 1},
			},
		},
	}
	return schema
}
