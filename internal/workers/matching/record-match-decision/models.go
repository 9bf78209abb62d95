// internal/workers/matching/record-match-decision/models.go
package recordmatchdecision

import "business-matching-workers/internal/models"

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
	DecisionUpdate Decision = "update"
)

// Input identifies the match either by matchId or by the pmiId/partnerId
// pair. Rating and status are only read for the update decision.
type Input struct {
	MatchID     string             `json:"matchId"`
	PMIID       string             `json:"pmiId"`
	PartnerID   string             `json:"partnerId"`
	Decision    Decision           `json:"decision"`
	Role        models.Role        `json:"role"`
	Notes       string             `json:"notes"`
	Rating      *int               `json:"rating"`
	Status      models.MatchStatus `json:"status"`
	MatchScore  float64            `json:"matchScore"`
	MatchReason string             `json:"matchReason"`
}

type Output struct {
	MatchID   string               `json:"matchId"`
	Status    models.MatchStatus   `json:"status"`
	Created   bool                 `json:"created"`
	Match     models.BusinessMatch `json:"match"`
	UpdatedAt string               `json:"updatedAt"`
}
