// internal/workers/matching/rank-partner-matches/handler.go
package rankpartnermatches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "business-matching-workers/internal/common/errors"
	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/common/metrics"
	"business-matching-workers/internal/common/observability"
	"business-matching-workers/internal/common/validation"
	"business-matching-workers/internal/matching/ranking"
	"business-matching-workers/internal/models"
	"business-matching-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "rank-partner-matches"

	cacheKeyPrefix = "matching:ranking:"
)

type RequesterStore interface {
	GetRequester(ctx context.Context, pmiID string) (*models.RequesterProfile, error)
}

type SuggestionStore interface {
	Create(ctx context.Context, pmiID, partnerID string, score float64, reason string) (*models.BusinessMatch, bool, error)
}

// HandlerOptions wires the handler. Redis, Suggestions and Observability
// are optional.
type HandlerOptions struct {
	Config        *Config
	Ranker        *ranking.Ranker
	Requesters    RequesterStore
	Candidates    repository.CandidateSource
	Suggestions   SuggestionStore
	Redis         *redis.Client
	Observability *observability.Observability
	Logger        logger.Logger
}

type Handler struct {
	config      *Config
	ranker      *ranking.Ranker
	requesters  RequesterStore
	candidates  repository.CandidateSource
	suggestions SuggestionStore
	redis       *redis.Client
	obs         *observability.Observability
	errors      *apperrors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      opts.Config.withDefaults(),
		ranker:      opts.Ranker,
		requesters:  opts.Requesters,
		candidates:  opts.Candidates,
		suggestions: opts.Suggestions,
		redis:       opts.Redis,
		obs:         opts.Observability,
		errors:      apperrors.NewErrorHandler(log),
		logger:      log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (*Input, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	result, err := validation.ValidateInput(doc, GetInputSchema())
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	limit := h.config.DefaultTopN
	if input.Limit != nil {
		limit = *input.Limit
	}
	if limit < 1 || limit > h.config.MaxTopN {
		return nil, apperrors.NewInvalidTopNError(limit, h.config.MaxTopN)
	}

	req, inline, err := h.loadRequester(ctx, input)
	if err != nil {
		return nil, err
	}

	useCache := h.redis != nil && !inline && !input.SkipCache
	key := cacheKey(req.ID, limit)

	var output *Output
	if useCache {
		output = h.cached(ctx, key)
	}
	if output == nil {
		output, err = h.rank(ctx, req, limit)
		if err != nil {
			return nil, err
		}
		if useCache {
			h.store(ctx, key, output)
		}
	}

	if input.PersistSuggestions && h.suggestions != nil {
		persisted, err := h.persist(ctx, req.ID, output.Matches)
		if err != nil {
			return nil, err
		}
		output.Persisted = persisted
	}

	h.logger.Info("partners ranked", map[string]interface{}{
		"pmiId":      req.ID,
		"candidates": output.TotalCandidates,
		"returned":   output.Returned,
		"cached":     output.Cached,
		"persisted":  output.Persisted,
	})
	return output, nil
}

func (h *Handler) loadRequester(ctx context.Context, input *Input) (*models.RequesterProfile, bool, error) {
	if input.Requester != nil {
		req := *input.Requester
		if req.ID == "" {
			req.ID = input.PMIID
		}
		return &req, true, nil
	}

	req, err := h.requesters.GetRequester(ctx, input.PMIID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, false, apperrors.NewProfileNotFoundError(input.PMIID)
	}
	if err != nil {
		return nil, false, apperrors.NewExternalServiceError("postgres", err)
	}
	return req, false, nil
}

func (h *Handler) rank(ctx context.Context, req *models.RequesterProfile, limit int) (*Output, error) {
	source := h.candidates.Name()
	candidates, err := h.candidates.ListPublicPartners(ctx)
	if err != nil {
		return nil, mapSourceError(source, err)
	}

	ctx, span := h.obs.StartSpan(ctx, "ranking.rank",
		attribute.String("pmi.id", req.ID),
		attribute.Int("candidates", len(candidates)),
		attribute.Int("limit", limit),
	)
	defer span.End()

	matches, err := h.ranker.Rank(ctx, *req, candidates, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ranking.ErrInvalidTopN) {
			return nil, apperrors.NewInvalidTopNError(limit, h.config.MaxTopN)
		}
		return nil, apperrors.NewTimeoutError("ranker", err)
	}

	return &Output{
		PMIID:           req.ID,
		Matches:         matches,
		TotalCandidates: len(candidates),
		Returned:        len(matches),
		Source:          source,
		RankedAt:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func mapSourceError(source string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSearchTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewSearchTimeoutError(source)
	case errors.Is(err, repository.ErrSearchFailed):
		return apperrors.NewSearchQueryFailedError(source, err)
	default:
		return apperrors.NewCandidatePoolFailedError(source, err)
	}
}

func (h *Handler) persist(ctx context.Context, pmiID string, matches []models.MatchResult) (int, error) {
	created := 0
	for _, m := range matches {
		_, isNew, err := h.suggestions.Create(ctx, pmiID, m.CandidateID, m.TotalScorePercent, m.Explanation)
		if err != nil {
			return created, apperrors.NewMatchPersistFailedError(err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func cacheKey(pmiID string, limit int) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, pmiID, limit)
}

// cached returns nil on a miss. Cache errors are logged and treated as a miss.
func (h *Handler) cached(ctx context.Context, key string) *Output {
	val, err := h.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RankingCacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		metrics.RankingCacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("ranking cache read failed", map[string]interface{}{"key": key, "error": err})
		return nil
	}

	var out Output
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		metrics.RankingCacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("ranking cache entry unreadable", map[string]interface{}{"key": key, "error": err})
		return nil
	}
	metrics.RankingCacheLookups.WithLabelValues("hit").Inc()
	out.Cached = true
	return &out
}

func (h *Handler) store(ctx context.Context, key string, out *Output) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, key, string(data), h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("ranking cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
