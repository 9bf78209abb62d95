// internal/workers/matching/calculate-match-score/validation.go
package calculatematchscore

import "business-matching-workers/internal/common/validation"

func GetInputSchema() validation.Schema {
	return validation.Object([]string{"requester", "partner"}, map[string]validation.Schema{
		"requester": validation.Object(nil, map[string]validation.Schema{
			"sector":        {"type": "string"},
			"targetMarkets": validation.StringArray(),
			"businessNeeds": validation.StringArray(),
			"sizeClass":     {"type": "string"},
		}),
		"partner": validation.Object([]string{"id"}, map[string]validation.Schema{
			"id":               validation.String(1),
			"country":          {"type": "string"},
			"expertiseSectors": validation.StringArray(),
			"servicesOffered":  validation.StringArray(),
		}),
	})
}
