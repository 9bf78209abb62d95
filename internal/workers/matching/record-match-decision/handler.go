// internal/workers/matching/record-match-decision/handler.go
package recordmatchdecision

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
	"business-matching-workers/internal/common/validation"
	"business-matching-workers/internal/models"
	"business-matching-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "record-match-decision"

type MatchStore interface {
	FindByPair(ctx context.Context, pmiID, partnerID string) (*models.BusinessMatch, error)
	Create(ctx context.Context, pmiID, partnerID string, score float64, reason string) (*models.BusinessMatch, bool, error)
	Accept(ctx context.Context, matchID string, role models.Role, notes string) (*models.BusinessMatch, error)
	Reject(ctx context.Context, matchID string, role models.Role, notes string) (*models.BusinessMatch, error)
	Update(ctx context.Context, matchID string, role models.Role, upd repository.MatchUpdate) (*models.BusinessMatch, error)
}

type Handler struct {
	config  *Config
	matches MatchStore
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, matches MatchStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		matches: matches,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
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
	matchID, created, err := h.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	var m *models.BusinessMatch
	switch input.Decision {
	case DecisionAccept:
		m, err = h.matches.Accept(ctx, matchID, input.Role, input.Notes)
	case DecisionReject:
		m, err = h.matches.Reject(ctx, matchID, input.Role, input.Notes)
	case DecisionUpdate:
		m, err = h.matches.Update(ctx, matchID, input.Role, repository.MatchUpdate{
			Status: input.Status,
			Notes:  input.Notes,
			Rating: input.Rating,
		})
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown decision %q", input.Decision))
	}
	if err != nil {
		return nil, mapStoreError(matchID, err)
	}

	metrics.MatchDecisions.WithLabelValues(string(input.Role), string(m.Status)).Inc()
	h.logger.Info("match decision recorded", map[string]interface{}{
		"matchId":  m.ID,
		"decision": input.Decision,
		"role":     input.Role,
		"status":   m.Status,
		"created":  created,
	})

	return &Output{
		MatchID:   m.ID,
		Status:    m.Status,
		Created:   created,
		Match:     *m,
		UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// resolve returns the id of the match the decision applies to. Accepting a
// pair that was never suggested creates the match first.
func (h *Handler) resolve(ctx context.Context, input *Input) (string, bool, error) {
	if input.MatchID != "" {
		return input.MatchID, false, nil
	}

	existing, err := h.matches.FindByPair(ctx, input.PMIID, input.PartnerID)
	if err == nil {
		return existing.ID, false, nil
	}
	pair := input.PMIID + "/" + input.PartnerID
	if !errors.Is(err, repository.ErrMatchNotFound) {
		return "", false, mapStoreError(pair, err)
	}
	if input.Decision != DecisionAccept {
		return "", false, apperrors.NewMatchNotFoundError(pair)
	}

	m, created, err := h.matches.Create(ctx, input.PMIID, input.PartnerID, input.MatchScore, input.MatchReason)
	if err != nil {
		return "", false, apperrors.NewMatchPersistFailedError(err)
	}
	return m.ID, created, nil
}

func mapStoreError(matchID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrMatchNotFound):
		return apperrors.NewMatchNotFoundError(matchID)
	case errors.Is(err, repository.ErrInvalidRating),
		errors.Is(err, repository.ErrInvalidStatus),
		errors.Is(err, repository.ErrInvalidRole):
		return apperrors.NewInvalidMatchTransitionError(err.Error())
	default:
		return apperrors.NewMatchPersistFailedError(err)
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
