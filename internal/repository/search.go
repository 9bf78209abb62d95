// internal/repository/search.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"business-matching-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultSearchSize = 1000

// PartnerSearch reads public partners from the partner index.
type PartnerSearch struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewPartnerSearch(client *elasticsearch.Client, index string) *PartnerSearch {
	return &PartnerSearch{client: client, index: index, size: defaultSearchSize}
}

func (s *PartnerSearch) Name() string { return "elasticsearch" }

type partnerDocument struct {
	ID               interface{} `json:"id"`
	CompanyName      string      `json:"company_name"`
	Country          string      `json:"country"`
	City             string      `json:"city"`
	PartnerType      string      `json:"partner_type"`
	SectorsExpertise []string    `json:"sectors_expertise"`
	ServicesOffered  []string    `json:"services_offered"`
	Description      string      `json:"description"`
}

type searchHit struct {
	Source partnerDocument `json:"_source"`
	Sort   []interface{}   `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// buildPublicPartnersQuery pages through the index with search_after on the
// id sort. after is nil for the first page.
func buildPublicPartnersQuery(size int, after []interface{}) map[string]interface{} {
	q := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"is_public": true}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	return q
}

// ListPublicPartners returns every public partner sorted by id, reading the
// index one page at a time.
func (s *PartnerSearch) ListPublicPartners(ctx context.Context) ([]models.CandidateProfile, error) {
	var (
		partners []models.CandidateProfile
		after    []interface{}
	)
	for {
		hits, err := s.searchPage(ctx, after)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			partners = append(partners, toCandidate(hit.Source))
		}
		if len(hits) < s.size {
			break
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("%w: hit without sort values in %s", ErrSearchFailed, s.index)
		}
	}
	if partners == nil {
		partners = []models.CandidateProfile{}
	}
	return partners, nil
}

func (s *PartnerSearch) searchPage(ctx context.Context, after []interface{}) ([]searchHit, error) {
	body, err := json.Marshal(buildPublicPartnersQuery(s.size, after))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrSearchTimeout, s.index)
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r searchResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}
	return r.Hits.Hits, nil
}

func toCandidate(doc partnerDocument) models.CandidateProfile {
	return models.CandidateProfile{
		ID:               fmt.Sprint(doc.ID),
		DisplayName:      doc.CompanyName,
		Country:          doc.Country,
		City:             doc.City,
		PartnerType:      doc.PartnerType,
		ExpertiseSectors: nonNil(doc.SectorsExpertise),
		ServicesOffered:  nonNil(doc.ServicesOffered),
		DescriptionText:  doc.Description,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
