// internal/workers/matching/rank-partner-matches/validation.go
package rankpartnermatches

import "business-matching-workers/internal/common/validation"

// GetInputSchema leaves the limit range to the handler so that an out of
// range limit is reported as INVALID_TOP_N rather than INVALID_INPUT.
func GetInputSchema() validation.Schema {
	schema := validation.Object(nil, map[string]validation.Schema{
		"pmiId": {"type": "string"},
		"requester": validation.Object(nil, map[string]validation.Schema{
			"sector":        {"type": "string"},
			"targetMarkets": validation.StringArray(),
			"businessNeeds": validation.StringArray(),
			"sizeClass":     {"type": "string"},
		}),
		"limit":              {"type": "integer"},
		"persistSuggestions": {"type": "boolean"},
		"skipCache":          {"type": "boolean"},
	})
	schema["anyOf"] = []interface{}{
		map[string]interface{}{"required": []interface{}{"pmiId"}, "properties": map[string]interface{}{"pmiId": map[string]interface{}{"minLength": 1}}},
		map[string]interface{}{"required": []interface{}{"requester"}},
	}
	return schema
}
