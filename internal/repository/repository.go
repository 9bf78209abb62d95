// Package repository loads profiles and persists matches for the matching
// workers. Postgres holds the profiles and matches; Elasticsearch can serve
// as an alternate source of candidate partners.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"business-matching-workers/internal/models"
)

var (
	ErrProfileNotFound = errors.New("PROFILE_NOT_FOUND")
	ErrMatchNotFound   = errors.New("MATCH_NOT_FOUND")
	ErrInvalidRating   = errors.New("INVALID_RATING")
	ErrInvalidStatus   = errors.New("INVALID_STATUS")
	ErrInvalidRole     = errors.New("INVALID_ROLE")
	ErrSearchTimeout   = errors.New("SEARCH_TIMEOUT")
	ErrSearchFailed    = errors.New("SEARCH_QUERY_FAILED")
)

// CandidateSource returns the pool of partners a requester is ranked against.
type CandidateSource interface {
	Name() string
	ListPublicPartners(ctx context.Context) ([]models.CandidateProfile, error)
}

// parseList decodes a JSON array column. Anything unparsable is an empty list.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}
