package models

import "time"

// ScoreBreakdown holds the five sub-scores and their weighted total. Values
// are either raw (0..1) or percent scaled (0..100) depending on where the
// breakdown came from.
type ScoreBreakdown struct {
	Sector  float64 `json:"sectorScore"`
	Country float64 `json:"countryScore"`
	Service float64 `json:"serviceScore"`
	Size    float64 `json:"sizeScore"`
	Keyword float64 `json:"keywordScore"`
	Total   float64 `json:"totalScore"`
}

type MatchResult struct {
	CandidateID       string           `json:"partnerId"`
	DisplayName       string           `json:"partnerName"`
	TotalScorePercent float64          `json:"matchScore"`
	Breakdown         ScoreBreakdown   `json:"breakdown"`
	Explanation       string           `json:"explanation"`
	Candidate         CandidateProfile `json:"partner"`
}

type MatchStatus string

const (
	MatchSuggested        MatchStatus = "suggested"
	MatchAccepted         MatchStatus = "accepted"
	MatchRejected         MatchStatus = "rejected"
	MatchMeetingScheduled MatchStatus = "meeting_scheduled"
	MatchCompleted        MatchStatus = "completed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchSuggested, MatchAccepted, MatchRejected, MatchMeetingScheduled, MatchCompleted:
		return true
	}
	return false
}

// BusinessMatch is a persisted requester/partner pairing.
type BusinessMatch struct {
	ID            string      `json:"id"`
	PMIID         string      `json:"pmiId"`
	PartnerID     string      `json:"partnerId"`
	MatchScore    float64     `json:"matchScore"`
	MatchReason   string      `json:"matchReason"`
	Status        MatchStatus `json:"status"`
	PMINotes      string      `json:"pmiNotes,omitempty"`
	PartnerNotes  string      `json:"partnerNotes,omitempty"`
	PMIRating     *int        `json:"pmiRating,omitempty"`
	PartnerRating *int        `json:"partnerRating,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Role identifies which side of a match is acting on it.
type Role string

const (
	RolePMI     Role = "pmi"
	RolePartner Role = "partner"
)

func (r Role) Valid() bool {
	return r == RolePMI || r == RolePartner
}
