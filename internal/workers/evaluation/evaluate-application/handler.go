// internal/workers/evaluation/evaluate-application/handler.go
package evaluateapplication

import (
	"context"
	"encoding/json"
	"fmt"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"
	"social-evaluation/internal/models"
	"social-evaluation/internal/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-application"
)

// Submitter is the application service as seen by this worker.
type Submitter interface {
	Submit(ctx context.Context, req service.Request) (models.Decision, error)
}

type Handler struct {
	config       *Config
	service      Submitter
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, svc Submitter, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      svc,
		errorHandler: errors.NewErrorHandler(scoped),
		logger:       scoped,
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
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("invalid job variables: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":       job.Key,
		"evaluationId": output.EvaluationID,
		"outcome":      output.Outcome,
	})
}

// Execute runs the evaluation for one set of job variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	decision, err := h.service.Submit(ctx, service.Request{
		Track:       input.Track,
		ApplicantID: input.EmiratesID,
		Profile:     input.ApplicantData,
		Documents:   input.Documents,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		EvaluationID: decision.EvaluationID,
		Outcome:      string(decision.Outcome),
		Result:       decision.Payload(),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Kind(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
