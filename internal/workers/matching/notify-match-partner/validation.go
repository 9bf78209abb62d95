// internal/workers/matching/notify-match-partner/validation.go
package notifymatchpartner

import "business-matching-workers/internal/common/validation"

func GetInputSchema() validation.Schema {
	schema := validation.Object(nil, map[string]validation.Schema{
		"type":           validation.Enum(TypeMatchSuggested, TypeMatchAccepted),
		"matchId":        {"type": "string"},
		"pmiId":          {"type": "string"},
		"pmiCompanyName": {"type": "string"},
		"partnerId":      {"type": "string"},
		"partnerName":    {"type": "string"},
		"matchScore":     {"type": "number", "minimum": 0, "maximum": 100},
		"explanation":    {"type": "string"},
		"matches":        {"type": "array", "items": map[string]interface{}{"type": "object"}},
	})
	schema["anyOf"] = []interface{}{
		map[string]interface{}{
			"required":   []interface{}{"partnerId"},
			"properties": map[string]interface{}{"partnerId": map[string]interface{}{"minLength": 1}},
		},
		map[string]interface{}{
			"required":   []interface{}{"matches"},
			"properties": map[string]interface{}{"matches": map[string]interface{}{"minItems": 1}},
		},
	}
	return schema
}
