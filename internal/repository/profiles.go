// internal/repository/profiles.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"business-matching-workers/internal/models"
)

// Needs assumed for a requester that has not declared any.
var defaultBusinessNeeds = []string{"distributor", "logistics"}

const (
	defaultCapacity = "medium"

	requesterQuery = `
		SELECT id, company_name, COALESCE(sector, ''), COALESCE(target_markets, ''),
		       COALESCE(business_needs, ''), COALESCE(company_size, ''),
		       COALESCE(production_capacity, ''), COALESCE(business_objectives, '')
		FROM pmi_profiles
		WHERE id = $1`

	publicPartnersQuery = `
		SELECT id, company_name, COALESCE(country, ''), COALESCE(city, ''),
		       COALESCE(partner_type, ''), COALESCE(sectors_expertise, ''),
		       COALESCE(services_offered, ''), COALESCE(description, '')
		FROM partner_profiles
		WHERE is_public = true
		ORDER BY id`

	partnerContactQuery = `
		SELECT COALESCE(u.email, ''), COALESCE(p.phone, '')
		FROM partner_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Name() string { return "postgres" }

// GetRequester loads a PMI profile.
func (s *ProfileStore) GetRequester(ctx context.Context, pmiID string) (*models.RequesterProfile, error) {
	var (
		p                    models.RequesterProfile
		markets, needs, size string
	)
	err := s.db.QueryRowContext(ctx, requesterQuery, pmiID).Scan(
		&p.ID, &p.CompanyName, &p.Sector, &markets, &needs, &size, &p.CapacityDescriptor, &p.ObjectivesText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pmi %s", ErrProfileNotFound, pmiID)
	}
	if err != nil {
		return nil, fmt.Errorf("query pmi profile: %w", err)
	}

	p.TargetMarkets = parseList(markets)
	p.BusinessNeeds = parseList(needs)
	if len(p.BusinessNeeds) == 0 {
		p.BusinessNeeds = append([]string(nil), defaultBusinessNeeds...)
	}
	p.SizeClass = normalizeSize(size)
	if p.CapacityDescriptor == "" {
		p.CapacityDescriptor = defaultCapacity
	}
	return &p, nil
}

// ListPublicPartners returns every public partner ordered by id.
func (s *ProfileStore) ListPublicPartners(ctx context.Context) ([]models.CandidateProfile, error) {
	rows, err := s.db.QueryContext(ctx, publicPartnersQuery)
	if err != nil {
		return nil, fmt.Errorf("query partners: %w", err)
	}
	defer rows.Close()

	partners := []models.CandidateProfile{}
	for rows.Next() {
		var (
			c                 models.CandidateProfile
			sectors, services string
		)
		if err := rows.Scan(&c.ID, &c.DisplayName, &c.Country, &c.City, &c.PartnerType,
			&sectors, &services, &c.DescriptionText); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		c.ExpertiseSectors = parseList(sectors)
		c.ServicesOffered = parseList(services)
		partners = append(partners, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return partners, nil
}

// GetPartnerContact returns the email of the partner's user and the
// profile phone number.
func (s *ProfileStore) GetPartnerContact(ctx context.Context, partnerID string) (*models.Contact, error) {
	var c models.Contact
	err := s.db.QueryRowContext(ctx, partnerContactQuery, partnerID).Scan(&c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner %s", ErrProfileNotFound, partnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query partner contact: %w", err)
	}
	return &c, nil
}

// normalizeSize maps stored size labels, including the Italian ones used by
// the registration form, onto a SizeClass. Empty means small.
func normalizeSize(raw string) models.SizeClass {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return models.SizeSmall
	case "micro":
		return models.SizeMicro
	case "small", "piccola":
		return models.SizeSmall
	case "medium", "media":
		return models.SizeMedium
	default:
		return models.SizeClass(strings.ToLower(strings.TrimSpace(raw)))
	}
}
