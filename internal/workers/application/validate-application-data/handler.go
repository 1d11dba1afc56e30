// internal/workers/application/validate-application-data/handler.go
package validateapplicationdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/common/validation"
	"hireflow/internal/wizard"
)

const TaskType = "validate-application-data"

var schema = validation.MustCompileSchema([]byte(inputSchema))

type Handler struct {
	config     *Config
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parse([]byte(job.Variables))
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
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
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// parse checks the raw variables against the input schema, then decodes.
func (h *Handler) parse(raw []byte) (*Input, error) {
	res, err := schema.Validate(json.RawMessage(raw))
	if err != nil {
		return nil, apperrors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	if !res.Valid {
		return nil, apperrors.NewApplicationValidationFailedError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, apperrors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	stage := finalStage
	validate := wizard.ValidateFinal
	if input.Stage != 0 {
		s := wizard.Stage(input.Stage)
		stage = s.String()
		validate = wizard.ValidatorFor(s)
	}

	out := &Output{IsValid: true, Stage: stage, ValidationErrors: []ValidationError{}}
	if validate == nil {
		return out, nil
	}

	res := validate(&input.Form)
	for _, key := range wizard.FieldKeys(res.Errors) {
		out.ValidationErrors = append(out.ValidationErrors, ValidationError{Field: key, Message: res.Errors[key]})
	}

	h.logger.Info("validation completed", map[string]interface{}{
		"stage":      stage,
		"isValid":    res.Valid,
		"errorCount": len(out.ValidationErrors),
	})

	if !res.Valid {
		msgs := make([]string, len(out.ValidationErrors))
		for i, e := range out.ValidationErrors {
			msgs[i] = e.Field + ": " + e.Message
		}
		return nil, apperrors.NewApplicationValidationFailedError(strings.Join(msgs, "; "))
	}
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

