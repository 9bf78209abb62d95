// internal/repository/matches.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"business-matching-workers/internal/models"

	"github.com/google/uuid"
)

const matchColumns = `id, pmi_id, partner_id, match_score, COALESCE(match_reason, ''), status,
		COALESCE(pmi_notes, ''), COALESCE(partner_notes, ''), pmi_rating, partner_rating,
		created_at, updated_at`

// MatchUpdate carries the optional fields of an update. Zero values are
// left untouched.
type MatchUpdate struct {
	Status models.MatchStatus
	Notes  string
	Rating *int
}

type MatchStore struct {
	db *sql.DB
}

func NewMatchStore(db *sql.DB) *MatchStore {
	return &MatchStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.BusinessMatch, error) {
	var (
		m                        models.BusinessMatch
		status                   string
		pmiRating, partnerRating sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.PMIID, &m.PartnerID, &m.MatchScore, &m.MatchReason, &status,
		&m.PMINotes, &m.PartnerNotes, &pmiRating, &partnerRating, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(status)
	if pmiRating.Valid {
		r := int(pmiRating.Int64)
		m.PMIRating = &r
	}
	if partnerRating.Valid {
		r := int(partnerRating.Int64)
		m.PartnerRating = &r
	}
	return &m, nil
}

// Create stores a suggested match for the pair. When the pair already has a
// match, that match is returned unchanged and created is false.
func (s *MatchStore) Create(ctx context.Context, pmiID, partnerID string, score float64, reason string) (*models.BusinessMatch, bool, error) {
	existing, err := s.FindByPair(ctx, pmiID, partnerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrMatchNotFound) {
		return nil, false, err
	}

	query := `
		INSERT INTO business_matches (id, pmi_id, partner_id, match_score, match_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + matchColumns

	m, err := scanMatch(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), pmiID, partnerID, score, reason, string(models.MatchSuggested)))
	if err != nil {
		return nil, false, fmt.Errorf("insert match: %w", err)
	}
	return m, true, nil
}

func (s *MatchStore) Get(ctx context.Context, matchID string) (*models.BusinessMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM business_matches WHERE id = $1`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("query match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) FindByPair(ctx context.Context, pmiID, partnerID string) (*models.BusinessMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM business_matches WHERE pmi_id = $1 AND partner_id = $2`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, pmiID, partnerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pmi %s, partner %s", ErrMatchNotFound, pmiID, partnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) Accept(ctx context.Context, matchID string, role models.Role, notes string) (*models.BusinessMatch, error) {
	return s.Update(ctx, matchID, role, MatchUpdate{Status: models.MatchAccepted, Notes: notes})
}

func (s *MatchStore) Reject(ctx context.Context, matchID string, role models.Role, notes string) (*models.BusinessMatch, error) {
	return s.Update(ctx, matchID, role, MatchUpdate{Status: models.MatchRejected, Notes: notes})
}

// Update applies the non-empty fields of upd. Notes and rating are written
// to the column of the acting role.
func (s *MatchStore) Update(ctx context.Context, matchID string, role models.Role, upd MatchUpdate) (*models.BusinessMatch, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, upd.Status)
	}
	if upd.Rating != nil && (*upd.Rating < 1 || *upd.Rating > 5) {
		return nil, fmt.Errorf("%w: %d, allowed 1..5", ErrInvalidRating, *upd.Rating)
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != "" {
		add("status", string(upd.Status))
	}
	if upd.Notes != "" {
		add(string(role)+"_notes", upd.Notes)
	}
	if upd.Rating != nil {
		add(string(role)+"_rating", *upd.Rating)
	}

	args = append(args, matchID)
	query := fmt.Sprintf(`UPDATE business_matches SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), matchColumns)

	m, err := scanMatch(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("update match: %w", err)
	}
	return m, nil
}

// ListForPMI returns the requester's matches, best score first. An empty
// status returns every match.
func (s *MatchStore) ListForPMI(ctx context.Context, pmiID string, status models.MatchStatus) ([]models.BusinessMatch, error) {
	return s.list(ctx, "pmi_id", pmiID, status)
}

func (s *MatchStore) ListForPartner(ctx context.Context, partnerID string, status models.MatchStatus) ([]models.BusinessMatch, error) {
	return s.list(ctx, "partner_id", partnerID, status)
}

func (s *MatchStore) list(ctx context.Context, column, id string, status models.MatchStatus) ([]models.BusinessMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM business_matches WHERE ` + column + ` = $1`
	args := []interface{}{id}
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY match_score DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := []models.BusinessMatch{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}
