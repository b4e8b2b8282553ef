// internal/workers/entries/submit-entry/handler.go
package submitentry

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"kurio/internal/common/camunda"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/entries"
)

const TaskType = "submit-entry"

type Submitter interface {
	Submit(ctx context.Context, sub entries.Submission) (*entries.Entry, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, submitter Submitter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		submitter: submitter,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	log := h.logger.With(map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	log.Info("processing job", nil)

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewEntryValidationFailedError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}
	_ = camunda.Complete(client, job, output, log)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	entry, err := h.submitter.Submit(ctx, input.submission())
	if err != nil {
		return nil, err
	}

	h.logger.Info("entry submitted", map[string]interface{}{
		"entryId":  entry.ID,
		"category": entry.Category,
	})
	return &Output{
		EntryID:   entry.ID,
		Category:  entry.Category,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}
