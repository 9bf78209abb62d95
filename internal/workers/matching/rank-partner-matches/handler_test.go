package rankpartnermatches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "business-matching-workers/internal/common/errors"
	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/matching/ranking"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/models"
	"business-matching-workers/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequesters struct {
	profiles map[string]models.RequesterProfile
	err      error
	calls    int
}

func (f *fakeRequesters) GetRequester(ctx context.Context, pmiID string) (*models.RequesterProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[pmiID]
	if !ok {
		return nil, fmt.Errorf("%w: pmi %s", repository.ErrProfileNotFound, pmiID)
	}
	return &p, nil
}

type fakeSource struct {
	name     string
	partners []models.CandidateProfile
	err      error
	calls    int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ListPublicPartners(ctx context.Context) ([]models.CandidateProfile, error) {
	f.calls++
	return f.partners, f.err
}

type fakeSuggestions struct {
	mu      sync.Mutex
	created map[string]bool
	err     error
}

func (f *fakeSuggestions) Create(ctx context.Context, pmiID, partnerID string, score float64, reason string) (*models.BusinessMatch, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	key := pmiID + "/" + partnerID
	if f.created[key] {
		return &models.BusinessMatch{PMIID: pmiID, PartnerID: partnerID}, false, nil
	}
	f.created[key] = true
	return &models.BusinessMatch{PMIID: pmiID, PartnerID: partnerID, MatchScore: score, Status: models.MatchSuggested}, true, nil
}

func testRequester() models.RequesterProfile {
	return models.RequesterProfile{
		ID:             "pmi-1",
		CompanyName:    "Olivetti Agritech",
		Sector:         "agritech",
		TargetMarkets:  []string{"Kenya", "Tanzania"},
		BusinessNeeds:  []string{"distributor", "logistics"},
		SizeClass:      models.SizeSmall,
		ObjectivesText: "Expand distribution of agricultural machinery in East Africa",
	}
}

func testPartners() []models.CandidateProfile {
	return []models.CandidateProfile{
		{
			ID: "p-legal", DisplayName: "Lagos Legal", Country: "Nigeria", PartnerType: "legal",
			ExpertiseSectors: []string{"legal"}, ServicesOffered: []string{"legal"},
		},
		{
			ID: "p-nairobi", DisplayName: "Nairobi Agro Distribution", Country: "Kenya", PartnerType: "medium_distributor",
			ExpertiseSectors: []string{"agritech"}, ServicesOffered: []string{"distributor", "logistics"},
			DescriptionText: "agricultural machinery distribution across East Africa",
		},
		{
			ID: "p-kampala", DisplayName: "Kampala Movers", Country: "Tanzania", PartnerType: "logistics_company",
			ExpertiseSectors: []string{"logistics"}, ServicesOffered: []string{"logistics"},
		},
	}
}

type testDeps struct {
	requesters  *fakeRequesters
	source      *fakeSource
	suggestions *fakeSuggestions
}

func createTestHandler(t *testing.T, rdb *redis.Client) (*Handler, *testDeps) {
	deps := &testDeps{
		requesters:  &fakeRequesters{profiles: map[string]models.RequesterProfile{"pmi-1": testRequester()}},
		source:      &fakeSource{name: "postgres", partners: testPartners()},
		suggestions: &fakeSuggestions{created: map[string]bool{}},
	}
	log := logger.NewTestLogger(t)
	h := NewHandler(HandlerOptions{
		Config: &Config{
			Timeout:     5 * time.Second,
			CacheTTL:    10 * time.Minute,
			DefaultTopN: 2,
			MaxTopN:     50,
		},
		Ranker:      ranking.NewRanker(scoring.NewDefaultEngine(), ranking.Config{Concurrency: 2}, log),
		Requesters:  deps.requesters,
		Candidates:  deps.source,
		Suggestions: deps.suggestions,
		Redis:       rdb,
		Logger:      log,
	})
	return h, deps
}

func intPtr(v int) *int { return &v }

func TestHandler_Execute_RanksByScore(t *testing.T) {
	h, deps := createTestHandler(t, nil)

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1", Limit: intPtr(3)})
	require.NoError(t, err)

	require.Len(t, output.Matches, 3)
	assert.Equal(t, "p-nairobi", output.Matches[0].CandidateID)
	assert.Equal(t, "p-legal", output.Matches[2].CandidateID)
	for i := 1; i < len(output.Matches); i++ {
		assert.GreaterOrEqual(t, output.Matches[i-1].TotalScorePercent, output.Matches[i].TotalScorePercent)
	}
	assert.Equal(t, 3, output.TotalCandidates)
	assert.Equal(t, 3, output.Returned)
	assert.Equal(t, "postgres", output.Source)
	assert.False(t, output.Cached)
	assert.Zero(t, output.Persisted)
	assert.Equal(t, 1, deps.requesters.calls)
}

func TestHandler_Execute_DefaultLimit(t *testing.T) {
	h, _ := createTestHandler(t, nil)

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1"})
	require.NoError(t, err)
	assert.Len(t, output.Matches, 2)
}

func TestHandler_Execute_InvalidLimit(t *testing.T) {
	h, deps := createTestHandler(t, nil)

	for _, limit := range []int{0, -1, 51} {
		_, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1", Limit: intPtr(limit)})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidTopN, apperrors.Normalize(err).Code, "limit %d", limit)
	}
	assert.Zero(t, deps.source.calls)
}

func TestHandler_Execute_InlineRequester(t *testing.T) {
	h, deps := createTestHandler(t, nil)
	req := testRequester()
	req.ID = ""

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-x", Requester: &req, Limit: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "pmi-x", output.PMIID)
	assert.Len(t, output.Matches, 1)
	assert.Zero(t, deps.requesters.calls)
}

func TestHandler_Execute_ProfileNotFound(t *testing.T) {
	h, _ := createTestHandler(t, nil)

	_, err := h.Execute(context.Background(), &Input{PMIID: "missing"})
	require.Error(t, err)
	std := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeProfileMissing, std.Code)
	assert.False(t, std.Retryable)
}

func TestHandler_Execute_SourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"search timeout", fmt.Errorf("%w: partners", repository.ErrSearchTimeout), apperrors.ErrCodeSearchTimeout},
		{"search failed", fmt.Errorf("%w: 500", repository.ErrSearchFailed), apperrors.ErrCodeSearchQueryFailed},
		{"database down", errors.New("connection refused"), apperrors.ErrCodeCandidatePoolFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, deps := createTestHandler(t, nil)
			deps.source.err = tt.err

			_, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1"})
			require.Error(t, err)
			std := apperrors.Normalize(err)
			assert.Equal(t, tt.want, std.Code)
			assert.True(t, std.Retryable)
		})
	}
}

func TestHandler_Execute_EmptyPool(t *testing.T) {
	h, deps := createTestHandler(t, nil)
	deps.source.partners = nil

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1"})
	require.NoError(t, err)
	assert.NotNil(t, output.Matches)
	assert.Empty(t, output.Matches)
}

func TestHandler_Execute_PersistSuggestions(t *testing.T) {
	h, deps := createTestHandler(t, nil)
	input := &Input{PMIID: "pmi-1", Limit: intPtr(3), PersistSuggestions: true}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 3, output.Persisted)
	assert.True(t, deps.suggestions.created["pmi-1/p-nairobi"])

	output, err = h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Zero(t, output.Persisted)

	deps.suggestions.err = errors.New("deadlock detected")
	_, err = h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMatchPersistFailed, apperrors.Normalize(err).Code)
}

func TestHandler_Execute_CachesRanking(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h, deps := createTestHandler(t, rdb)
	input := &Input{PMIID: "pmi-1", Limit: intPtr(2)}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, mr.Exists("matching:ranking:pmi-1:2"))
	assert.Equal(t, 10*time.Minute, mr.TTL("matching:ranking:pmi-1:2"))

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, 1, deps.source.calls)

	_, err = h.Execute(context.Background(), &Input{PMIID: "pmi-1", Limit: intPtr(2), SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, deps.source.calls)
}

func TestHandler_Execute_InlineRequesterNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h, _ := createTestHandler(t, rdb)
	req := testRequester()

	_, err := h.Execute(context.Background(), &Input{Requester: &req})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestHandler_Execute_CacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.SetError("LOADING redis is loading the dataset in memory")

	h, deps := createTestHandler(t, rdb)

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1"})
	require.NoError(t, err)
	assert.False(t, output.Cached)
	assert.Len(t, output.Matches, 2)
	assert.Equal(t, 1, deps.source.calls)
}

func TestHandler_Execute_CacheHitWithRedisMock(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h, deps := createTestHandler(t, rdb)

	cached := Output{
		PMIID:           "pmi-1",
		Matches:         []models.MatchResult{{CandidateID: "p-nairobi", TotalScorePercent: 91.5}},
		TotalCandidates: 3,
		Returned:        1,
		Source:          "postgres",
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("matching:ranking:pmi-1:1").SetVal(string(data))

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1", Limit: intPtr(1)})
	require.NoError(t, err)
	assert.True(t, output.Cached)
	assert.Equal(t, 91.5, output.Matches[0].TotalScorePercent)
	assert.Zero(t, deps.source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CacheMissWithRedisMock(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h, deps := createTestHandler(t, rdb)
	deps.source.partners = nil

	mock.ExpectGet("matching:ranking:pmi-1:2").RedisNil()
	mock.Regexp().ExpectSet("matching:ranking:pmi-1:2", `"matches":\[\]`, 10*time.Minute).SetVal("OK")

	output, err := h.Execute(context.Background(), &Input{PMIID: "pmi-1"})
	require.NoError(t, err)
	assert.False(t, output.Cached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{"pmiId": "pmi-1", "limit": 5, "persistSuggestions": true}`)
	require.NoError(t, err)
	assert.Equal(t, "pmi-1", input.PMIID)
	require.NotNil(t, input.Limit)
	assert.Equal(t, 5, *input.Limit)
	assert.True(t, input.PersistSuggestions)

	input, err = parseInput(`{"requester": {"sector": "agritech", "targetMarkets": ["Kenya"]}}`)
	require.NoError(t, err)
	require.NotNil(t, input.Requester)
	assert.Nil(t, input.Limit)
}

func TestParseInput_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		variables string
	}{
		{"not json", `not json`},
		{"neither pmiId nor requester", `{"limit": 5}`},
		{"empty pmiId", `{"pmiId": ""}`},
		{"fractional limit", `{"pmiId": "pmi-1", "limit": 2.5}`},
		{"markets not a list", `{"requester": {"targetMarkets": "Kenya"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInput(tt.variables)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Normalize(err).Code)
		})
	}
}
