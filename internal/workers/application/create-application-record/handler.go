// internal/workers/application/create-application-record/handler.go
package createapplicationrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
	"hireflow/internal/wizard"
	"hireflow/pkg/registry"
)

const TaskType = "create-application-record"

type Handler struct {
	config     *Config
	jobs       wizard.JobLookup
	submitter  wizard.Submitter
	catalog    *registry.QuestionCatalog
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

// NewHandler builds the worker. jobs may be nil when job postings are not
// checked; a nil catalog means the embedded default.
func NewHandler(config *Config, jobs wizard.JobLookup, submitter wizard.Submitter, catalog *registry.QuestionCatalog, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if catalog == nil {
		catalog = registry.Default()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		jobs:       jobs,
		submitter:  submitter,
		catalog:    catalog,
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
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	mount, err := wizard.ResolveMount(ctx, h.jobs, input.Company, input.JobPostingID, input.ApplicantID)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewApplicationValidationFailedError(err.Error())
	}

	form, err := wizard.Import(h.catalog, &input.Form)
	if err != nil {
		return nil, apperrors.NewApplicationValidationFailedError(err.Error())
	}
	if res := wizard.ValidateAll(form); !res.Valid {
		return nil, apperrors.NewApplicationValidationFailedError(
			"missing or invalid fields: " + strings.Join(wizard.FieldKeys(res.Errors), ", "))
	}

	payload := wizard.Build(form, mount)
	if input.ResumeURL != "" {
		url := input.ResumeURL
		payload.ResumeURL = &url
	}

	result, err := h.submitter.Submit(ctx, payload, nil)
	if err != nil {
		return nil, err
	}

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId": result.ApplicationID,
		"applicantId":   mount.ApplicantID,
		"company":       mount.Company,
	})

	return &Output{
		ApplicationID:     result.ApplicationID,
		ApplicationStatus: string(models.StatusPending),
		ResumeURL:         result.ResumeURL,
		CreatedAt:         h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
