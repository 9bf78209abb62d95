// internal/workers/matching/notify-match-partner/models.go
package notifymatchpartner

import "business-matching-workers/internal/models"

const (
	TypeMatchSuggested = "match_suggested"
	TypeMatchAccepted  = "match_accepted"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

// Input names the partner to notify. When partnerId is empty the first entry
// of matches, as produced by rank-partner-matches, is used.
type Input struct {
	Type           string               `json:"type"`
	MatchID        string               `json:"matchId"`
	PMIID          string               `json:"pmiId"`
	PMICompanyName string               `json:"pmiCompanyName"`
	PartnerID      string               `json:"partnerId"`
	PartnerName    string               `json:"partnerName"`
	MatchScore     float64              `json:"matchScore"`
	Explanation    string               `json:"explanation"`
	Matches        []models.MatchResult `json:"matches"`
}

type Output struct {
	PartnerID     string                `json:"partnerId"`
	Notifications []models.Notification `json:"notifications"`
	Sent          int                   `json:"sent"`
}
