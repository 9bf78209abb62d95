// internal/workers/matching/rank-partner-matches/models.go
package rankpartnermatches

import "business-matching-workers/internal/models"

// Input names the requester by pmiId, or carries the profile inline.
// An inline profile is never cached.
type Input struct {
	PMIID              string                   `json:"pmiId"`
	Requester          *models.RequesterProfile `json:"requester,omitempty"`
	Limit              *int                     `json:"limit,omitempty"`
	PersistSuggestions bool                     `json:"persistSuggestions"`
	SkipCache          bool                     `json:"skipCache"`
}

type Output struct {
	PMIID           string               `json:"pmiId"`
	Matches         []models.MatchResult `json:"matches"`
	TotalCandidates int                  `json:"totalCandidates"`
	Returned        int                  `json:"returned"`
	Source          string               `json:"source"`
	Cached          bool                 `json:"cached"`
	Persisted       int                  `json:"persisted"`
	RankedAt        string               `json:"rankedAt"`
}
