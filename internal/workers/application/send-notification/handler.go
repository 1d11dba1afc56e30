// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonaws "hireflow/internal/common/aws"
	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
	"hireflow/internal/notifications"
)

const TaskType = "send-notification"

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Source reads the notification row and its recipient's contact details.
type Source interface {
	Get(ctx context.Context, id string) (*models.Notification, error)
	RecipientContact(ctx context.Context, recipientID string) (notifications.Contact, error)
}

type Handler struct {
	config     *Config
	source     Source
	sesClient  SESAPI
	snsClient  SNSAPI
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

// NewHandler builds the worker with SES and SNS clients for the configured
// region.
func NewHandler(config *Config, source Source, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = LoadConfig()
	}
	clients, err := commonaws.NewClients(context.Background(), config.AWSRegion)
	if err != nil {
		return nil, err
	}
	return NewHandlerWithClients(config, source, clients.SES, clients.SNS, log), nil
}

func NewHandlerWithClients(config *Config, source Source, sesClient SESAPI, snsClient SNSAPI, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		source:     source,
		sesClient:  sesClient,
		snsClient:  snsClient,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil || input.NotificationID == "" {
		if err == nil {
			err = errors.New("notificationId is required")
		}
		h.fail(ctx, client, job, apperrors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	n, err := h.source.Get(ctx, input.NotificationID)
	if err != nil {
		return nil, err
	}

	out := &Output{
		NotificationID: n.ID,
		Status:         StatusDisabled,
		Channels:       []string{},
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	contact, err := h.source.RecipientContact(ctx, n.RecipientID)
	if errors.Is(err, notifications.ErrNotFound) {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"recipientId":    n.RecipientID,
			"notificationId": n.ID,
		})
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	subject, body := render(n)

	if h.config.EmailEnabled && contact.Email != "" {
		if err := h.sendEmail(ctx, contact.Email, subject, body); err != nil {
			return nil, apperrors.NewNotificationSendFailedError(n.Type, fmt.Errorf("email: %w", err))
		}
		out.Channels = append(out.Channels, ChannelEmail)
	}

	if h.config.SMSEnabled && contact.Phone != "" && h.config.isPriority(n.Type) {
		if err := h.sendSMS(ctx, contact.Phone, body); err != nil {
			if len(out.Channels) == 0 {
				return nil, apperrors.NewNotificationSendFailedError(n.Type, fmt.Errorf("sms: %w", err))
			}
			// the email is out; retrying the job would send it twice
			h.logger.Warn("sms delivery failed after email was sent", map[string]interface{}{
				"notificationId": n.ID,
				"error":          err.Error(),
			})
			out.Failed = append(out.Failed, ChannelSMS)
		} else {
			out.Channels = append(out.Channels, ChannelSMS)
		}
	}

	switch {
	case len(out.Channels) > 0 && len(out.Failed) > 0:
		out.Status = StatusPartial
	case len(out.Channels) > 0:
		out.Status = StatusSent
	}
	h.logger.Info("notification delivered", map[string]interface{}{
		"notificationId": n.ID,
		"type":           n.Type,
		"channels":       out.Channels,
	})
	return out, nil
}

func render(n *models.Notification) (subject, body string) {
	subject, ok := subjects[n.Type]
	if !ok {
		subject = defaultSubject
	}
	body = n.Message
	if n.JobTitle != "" {
		body = fmt.Sprintf("%s\n\nPosition: %s", body, n.JobTitle)
		if n.CompanyName != "" {
			body = fmt.Sprintf("%s at %s", body, n.CompanyName)
		}
	}
	return subject, body
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
