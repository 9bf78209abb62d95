// internal/workers/matching/notify-match-partner/handler.go
package notifymatchpartner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"business-matching-workers/internal/common/aws"
	apperrors "business-matching-workers/internal/common/errors"
	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/common/metrics"
	"business-matching-workers/internal/common/validation"
	"business-matching-workers/internal/models"
	"business-matching-workers/internal/repository"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "notify-match-partner"

type ContactStore interface {
	GetPartnerContact(ctx context.Context, partnerID string) (*models.Contact, error)
}

type Handler struct {
	config   *Config
	contacts ContactStore
	ses      aws.SESService
	sns      aws.SNSService
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler builds the handler. ses and sns may be nil when the matching
// channel is disabled.
func NewHandler(config *Config, contacts ContactStore, ses aws.SESService, sns aws.SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		contacts: contacts,
		ses:      ses,
		sns:      sns,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
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

// resolveTarget fills the partner fields from the top ranked match when the
// input does not name a partner.
func resolveTarget(input *Input) error {
	if input.Type == "" {
		input.Type = TypeMatchSuggested
	}
	if input.PartnerID != "" {
		return nil
	}
	if len(input.Matches) == 0 || input.Matches[0].CandidateID == "" {
		return apperrors.NewInvalidInputError("no partner to notify")
	}
	top := input.Matches[0]
	input.PartnerID = top.CandidateID
	input.PartnerName = top.DisplayName
	input.MatchScore = top.TotalScorePercent
	input.Explanation = top.Explanation
	return nil
}

// execute sends the email first. An email failure fails the job so it is
// retried; an SMS failure is recorded in the output only, since a retry would
// send the email again.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := resolveTarget(input); err != nil {
		return nil, err
	}

	contact, err := h.contacts.GetPartnerContact(ctx, input.PartnerID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, apperrors.NewResourceNotFoundError("postgres", fmt.Sprintf("partnerId: %s", input.PartnerID))
	}
	if err != nil {
		return nil, apperrors.NewExternalServiceError("postgres", err)
	}

	msg := h.compose(input)
	out := &Output{PartnerID: input.PartnerID}

	email := h.notification(input, ChannelEmail, msg.payload)
	switch {
	case !h.config.EmailEnabled || h.ses == nil:
		email.Status = StatusDisabled
	case contact.Email == "":
		email.Status = StatusSkipped
	default:
		res, err := h.ses.SendEmail(ctx, aws.BuildEmail(h.config.FromEmail, contact.Email, msg.subject, msg.text, msg.html))
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		email.Status = StatusSent
		email.Payload["messageId"] = awssdk.ToString(res.MessageId)
	}
	out.Notifications = append(out.Notifications, email)

	sms := h.notification(input, ChannelSMS, msg.payload)
	switch {
	case !h.config.SMSEnabled || h.sns == nil:
		sms.Status = StatusDisabled
	case contact.Phone == "":
		sms.Status = StatusSkipped
	default:
		res, err := h.sns.Publish(ctx, aws.BuildSMS(contact.Phone, msg.sms))
		if err != nil {
			h.logger.Warn("sms delivery failed", map[string]interface{}{
				"partnerId": input.PartnerID,
				"error":     err,
			})
			sms.Status = StatusFailed
			sms.Payload["error"] = err.Error()
		} else {
			sms.Status = StatusSent
			sms.Payload["messageId"] = awssdk.ToString(res.MessageId)
		}
	}
	out.Notifications = append(out.Notifications, sms)

	for _, n := range out.Notifications {
		if n.Status == StatusSent {
			out.Sent++
		}
	}

	h.logger.Info("partner notified", map[string]interface{}{
		"partnerId": input.PartnerID,
		"matchId":   input.MatchID,
		"email":     email.Status,
		"sms":       sms.Status,
	})
	return out, nil
}

func (h *Handler) notification(input *Input, channel string, payload map[string]interface{}) models.Notification {
	p := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		p[k] = v
	}
	return models.Notification{
		ID:          uuid.New().String(),
		RecipientID: input.PartnerID,
		Type:        input.Type,
		Channel:     channel,
		Payload:     p,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}
}

type message struct {
	subject string
	text    string
	html    string
	sms     string
	payload map[string]interface{}
}

func (h *Handler) compose(input *Input) message {
	company := input.PMICompanyName
	if company == "" {
		company = "A company"
	}
	link := strings.TrimRight(h.config.PlatformURL, "/") + "/matches"
	if input.MatchID != "" {
		link += "/" + input.MatchID
	}

	var subject, lead string
	if input.Type == TypeMatchAccepted {
		subject = fmt.Sprintf("%s accepted your match", company)
		lead = fmt.Sprintf("%s accepted the match with %s.", company, partnerLabel(input))
	} else {
		subject = fmt.Sprintf("New partner match: %s", company)
		lead = fmt.Sprintf("%s was matched with %s (score %.1f%%).", company, partnerLabel(input), input.MatchScore)
	}

	text := lead + "\n\n"
	if input.Explanation != "" {
		text += input.Explanation + "\n\n"
	}
	text += "View the match: " + link + "\n"

	body := "<p>" + html.EscapeString(lead) + "</p>"
	if input.Explanation != "" {
		body += "<p>" + html.EscapeString(input.Explanation) + "</p>"
	}
	body += fmt.Sprintf(`<p><a href="%s">View the match</a></p>`, html.EscapeString(link))

	return message{
		subject: subject,
		text:    text,
		html:    body,
		sms:     fmt.Sprintf("%s Details: %s", lead, link),
		payload: map[string]interface{}{
			"matchId":    input.MatchID,
			"pmiId":      input.PMIID,
			"matchScore": input.MatchScore,
			"link":       link,
		},
	}
}

func partnerLabel(input *Input) string {
	if input.PartnerName != "" {
		return input.PartnerName
	}
	return "your company"
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
