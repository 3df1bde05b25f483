// internal/workers/evaluation/record-evaluation/handler.go
package recordevaluation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"
	"social-evaluation/internal/records"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-evaluation"
)

// RecordWriter stores one evaluation result.
type RecordWriter interface {
	Insert(ctx context.Context, emiratesID string, result interface{}) (int64, error)
}

type Handler struct {
	config       *Config
	store        RecordWriter
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, store RecordWriter, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
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
}

// Execute stores the result. Database failures are reported as retryable
// upstream errors so the workflow engine retries the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	id, err := h.store.Insert(ctx, input.EmiratesID, input.EvaluationResult)
	if err != nil {
		if stderrors.Is(err, records.ErrRecordInsertFailed) {
			return nil, errors.NewUpstreamError("record-store", err)
		}
		return nil, err
	}
	return &Output{InsertedID: id}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Kind(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
