// internal/workers/financials/fetch-financials/handler.go
package fetchfinancials

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"kurio/internal/common/camunda"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/financials"
)

const TaskType = "fetch-financials"

type Getter interface {
	Get(ctx context.Context, ticker string) (*financials.Financials, error)
}

type Handler struct {
	config *Config
	getter Getter
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, getter Getter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		getter: getter,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewFinancialsNotFoundError("Ticker is required."))
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
	f, err := h.getter.Get(ctx, input.Ticker)
	if err != nil {
		return nil, err
	}
	return &Output{
		Ticker:     f.Ticker,
		CIK:        f.CIK,
		FilingDate: f.FilingDate,
		Financials: f,
	}, nil
}
