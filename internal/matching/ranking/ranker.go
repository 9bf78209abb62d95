// Package ranking applies the scoring engine to a candidate pool and returns
// the best matches in a stable, reproducible order.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/common/metrics"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidTopN = errors.New("INVALID_TOP_N")

const defaultConcurrency = 4

// Scorer is the part of the scoring engine the ranker depends on.
type Scorer interface {
	Score(req models.RequesterProfile, cand models.CandidateProfile) models.ScoreBreakdown
	Explain(pct models.ScoreBreakdown, req models.RequesterProfile, cand models.CandidateProfile) string
}

type Config struct {
	// Concurrency bounds how many candidates are scored at once.
	Concurrency int
	// SlowThreshold logs a warning when one ranking takes longer. Zero
	// disables the warning.
	SlowThreshold time.Duration
}

type Ranker struct {
	scorer Scorer
	config Config
	logger logger.Logger
}

func NewRanker(scorer Scorer, config Config, log logger.Logger) *Ranker {
	if config.Concurrency < 1 {
		config.Concurrency = defaultConcurrency
	}
	return &Ranker{
		scorer: scorer,
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "ranker"}),
	}
}

// Rank scores every candidate against req and returns at most topN results
// ordered by total score descending. Candidates with equal scores keep their
// input order. Neither req nor candidates is modified.
//
// A candidate whose scoring panics is left out of the result; the rest of
// the pool is unaffected.
func (r *Ranker) Rank(ctx context.Context, req models.RequesterProfile, candidates []models.CandidateProfile, topN int) ([]models.MatchResult, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	if len(candidates) == 0 {
		return []models.MatchResult{}, nil
	}

	start := time.Now()
	scored := make([]*models.MatchResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = r.scoreOne(req, candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]models.MatchResult, 0, len(candidates))
	for _, res := range scored {
		if res != nil {
			results = append(results, *res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScorePercent > results[j].TotalScorePercent
	})
	if len(results) > topN {
		results = results[:topN]
	}

	elapsed := time.Since(start)
	metrics.RankingDuration.Observe(elapsed.Seconds())
	metrics.CandidatesScored.Add(float64(len(candidates)))

	fields := map[string]interface{}{
		"inputCount":  len(candidates),
		"outputCount": len(results),
		"topN":        topN,
		"durationMs":  elapsed.Milliseconds(),
	}
	if r.config.SlowThreshold > 0 && elapsed > r.config.SlowThreshold {
		r.logger.Warn("slow ranking", fields)
	} else {
		r.logger.Debug("ranking complete", fields)
	}

	return results, nil
}

func (r *Ranker) scoreOne(req models.RequesterProfile, cand models.CandidateProfile) (res *models.MatchResult) {
	defer func() {
		if p := recover(); p != nil {
			metrics.CandidatesExcluded.Inc()
			r.logger.Error("candidate excluded from ranking", map[string]interface{}{
				"candidateId": cand.ID,
				"panic":       fmt.Sprint(p),
			})
			res = nil
		}
	}()

	pct := scoring.ToPercent(r.scorer.Score(req, cand))
	return &models.MatchResult{
		CandidateID:       cand.ID,
		DisplayName:       cand.DisplayName,
		TotalScorePercent: pct.Total,
		Breakdown:         pct,
		Explanation:       r.scorer.Explain(pct, req, cand),
		Candidate:         cloneCandidate(cand),
	}
}

func cloneCandidate(c models.CandidateProfile) models.CandidateProfile {
	c.ExpertiseSectors = append([]string(nil), c.ExpertiseSectors...)
	c.ServicesOffered = append([]string(nil), c.ServicesOffered...)
	return c
}
