package calculatematchscore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "business-matching-workers/internal/common/errors"
	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, scoring.NewDefaultEngine(), logger.NewTestLogger(t))
}

func createTestInput() *Input {
	return &Input{
		Requester: models.RequesterProfile{
			ID:             "pmi-1",
			Sector:         "agritech",
			TargetMarkets:  []string{"Kenya", "Tanzania"},
			BusinessNeeds:  []string{"distributor", "logistics"},
			SizeClass:      models.SizeSmall,
			ObjectivesText: "Expand distribution of agricultural machinery in East Africa",
		},
		Partner: models.CandidateProfile{
			ID:               "101",
			DisplayName:      "Nairobi Agro Distribution",
			Country:          "Kenya",
			PartnerType:      "medium_distributor",
			ExpertiseSectors: []string{"agriculture", "logistics"},
			ServicesOffered:  []string{"distributor", "logistics", "warehousing"},
			DescriptionText:  "Leading agricultural equipment distributor in East Africa",
		},
	}
}

func TestHandler_Execute(t *testing.T) {
	h := createTestHandler(t)

	output, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, "101", output.PartnerID)
	assert.Equal(t, 70.0, output.Breakdown.Sector)
	assert.Equal(t, 100.0, output.Breakdown.Country)
	assert.Equal(t, 100.0, output.Breakdown.Service)
	assert.Equal(t, 100.0, output.Breakdown.Size)
	assert.GreaterOrEqual(t, output.MatchScore, 83.0)
	assert.LessOrEqual(t, output.MatchScore, 88.0)
	assert.Equal(t, output.MatchScore, output.Breakdown.Total)
	assert.Contains(t, output.Explanation, "The partner has experience in the agriculture sector")
	assert.Contains(t, output.Explanation, "The partner operates in Kenya, one of your target markets")
}

func TestHandler_Execute_NoOverlap(t *testing.T) {
	h := createTestHandler(t)
	input := createTestInput()
	input.Partner.Country = "Nigeria"
	input.Partner.ExpertiseSectors = []string{"textile"}
	input.Partner.ServicesOffered = nil
	input.Partner.PartnerType = "legal"

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 30.0, output.Breakdown.Size)
	assert.Equal(t, "This partner could be of interest for your expansion.", output.Explanation)
}

func TestHandler_Execute_Cancelled(t *testing.T) {
	h := createTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, createTestInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseInput(t *testing.T) {
	raw, err := json.Marshal(createTestInput())
	require.NoError(t, err)

	input, err := parseInput(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "agritech", input.Requester.Sector)
	assert.Equal(t, "Kenya", input.Partner.Country)
}

func TestParseInput_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		variables string
	}{
		{"not json", `{`},
		{"missing partner", `{"requester": {"sector": "agritech"}}`},
		{"partner without id", `{"requester": {}, "partner": {"country": "Kenya"}}`},
		{"markets not a list", `{"requester": {"targetMarkets": "Kenya"}, "partner": {"id": "1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInput(tt.variables)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Normalize(err).Code)
		})
	}
}
