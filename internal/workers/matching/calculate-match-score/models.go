// internal/workers/matching/calculate-match-score/models.go
package calculatematchscore

import "business-matching-workers/internal/models"

type Input struct {
	Requester models.RequesterProfile `json:"requester"`
	Partner   models.CandidateProfile `json:"partner"`
}

// Output reports every score as a percentage.
type Output struct {
	PartnerID   string                `json:"partnerId"`
	MatchScore  float64               `json:"matchScore"`
	Breakdown   models.ScoreBreakdown `json:"breakdown"`
	Explanation string                `json:"explanation"`
}
