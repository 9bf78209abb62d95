package ranking

import (
	"context"
	"fmt"
	"testing"

	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequester() models.RequesterProfile {
	return models.RequesterProfile{
		Sector:         "agritech",
		TargetMarkets:  []string{"Kenya", "Tanzania"},
		BusinessNeeds:  []string{"distributor", "logistics"},
		SizeClass:      models.SizeSmall,
		ObjectivesText: "Expand distribution of agricultural machinery in East Africa",
	}
}

func testCandidates() []models.CandidateProfile {
	return []models.CandidateProfile{
		{
			ID:               "102",
			DisplayName:      "Tanzania Tech Solutions",
			Country:          "Tanzania",
			PartnerType:      "consultant",
			ExpertiseSectors: []string{"technology", "consulting"},
			ServicesOffered:  []string{"consulting", "market_research"},
			DescriptionText:  "Technology consulting firm specializing in market entry strategies",
		},
		{
			ID:               "101",
			DisplayName:      "Nairobi Agro Distribution",
			Country:          "Kenya",
			PartnerType:      "medium_distributor",
			ExpertiseSectors: []string{"agriculture", "logistics"},
			ServicesOffered:  []string{"distributor", "logistics", "warehousing"},
			DescriptionText:  "Leading agricultural equipment distributor in East Africa with 15 years experience",
		},
		{
			ID:          "103",
			DisplayName: "Lagos Textiles",
			Country:     "Nigeria",
		},
	}
}

func newTestRanker(t *testing.T) *Ranker {
	return NewRanker(scoring.NewDefaultEngine(), Config{Concurrency: 3}, logger.NewTestLogger(t))
}

func TestRanker_Rank_OrdersByScore(t *testing.T) {
	r := newTestRanker(t)

	results, err := r.Rank(context.Background(), testRequester(), testCandidates(), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "101", results[0].CandidateID)
	assert.Equal(t, "Nairobi Agro Distribution", results[0].DisplayName)
	assert.GreaterOrEqual(t, results[0].TotalScorePercent, 73.0)
	assert.Equal(t, 70.0, results[0].Breakdown.Sector)
	assert.Equal(t, 100.0, results[0].Breakdown.Country)
	assert.Contains(t, results[0].Explanation, "The partner operates in Kenya, one of your target markets.")

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].TotalScorePercent, results[i].TotalScorePercent)
	}
}

func TestRanker_Rank_TopN(t *testing.T) {
	r := newTestRanker(t)
	cands := testCandidates()

	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("top %d", k), func(t *testing.T) {
			results, err := r.Rank(context.Background(), testRequester(), cands, k)
			require.NoError(t, err)
			assert.Len(t, results, min(k, len(cands)))
		})
	}
}

func TestRanker_Rank_InvalidTopN(t *testing.T) {
	r := newTestRanker(t)

	for _, n := range []int{0, -1} {
		_, err := r.Rank(context.Background(), testRequester(), testCandidates(), n)
		assert.ErrorIs(t, err, ErrInvalidTopN)
	}
}

func TestRanker_Rank_EmptyCandidates(t *testing.T) {
	r := newTestRanker(t)

	results, err := r.Rank(context.Background(), testRequester(), nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRanker_Rank_StableTies(t *testing.T) {
	r := newTestRanker(t)

	var cands []models.CandidateProfile
	for i := 0; i < 20; i++ {
		cands = append(cands, models.CandidateProfile{
			ID:          fmt.Sprintf("tie-%02d", i),
			Country:     "Kenya",
			PartnerType: "consultant",
		})
	}

	results, err := r.Rank(context.Background(), testRequester(), cands, 20)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("tie-%02d", i), res.CandidateID)
	}
}

func TestRanker_Rank_Deterministic(t *testing.T) {
	r := newTestRanker(t)

	first, err := r.Rank(context.Background(), testRequester(), testCandidates(), 3)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Rank(context.Background(), testRequester(), testCandidates(), 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRanker_Rank_DoesNotMutateInputs(t *testing.T) {
	r := newTestRanker(t)
	req := testRequester()
	cands := testCandidates()

	results, err := r.Rank(context.Background(), req, cands, 3)
	require.NoError(t, err)

	assert.Equal(t, testRequester(), req)
	assert.Equal(t, testCandidates(), cands)

	results[0].Candidate.ServicesOffered[0] = "changed"
	assert.Equal(t, testCandidates(), cands)
}

type flakyScorer struct {
	inner Scorer
	badID string
}

func (f flakyScorer) Score(req models.RequesterProfile, cand models.CandidateProfile) models.ScoreBreakdown {
	if cand.ID == f.badID {
		panic("corrupt profile")
	}
	return f.inner.Score(req, cand)
}

func (f flakyScorer) Explain(pct models.ScoreBreakdown, req models.RequesterProfile, cand models.CandidateProfile) string {
	return f.inner.Explain(pct, req, cand)
}

func TestRanker_Rank_ExcludesFailingCandidate(t *testing.T) {
	r := NewRanker(flakyScorer{inner: scoring.NewDefaultEngine(), badID: "101"}, Config{}, logger.NewNoOpLogger())

	results, err := r.Rank(context.Background(), testRequester(), testCandidates(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.NotEqual(t, "101", res.CandidateID)
	}
}

func TestRanker_Rank_CancelledContext(t *testing.T) {
	r := newTestRanker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rank(ctx, testRequester(), testCandidates(), 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRanker_Rank_ConcurrentCalls(t *testing.T) {
	r := newTestRanker(t)
	want, err := r.Rank(context.Background(), testRequester(), testCandidates(), 3)
	require.NoError(t, err)

	done := make(chan []models.MatchResult, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, _ := r.Rank(context.Background(), testRequester(), testCandidates(), 3)
			done <- res
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
