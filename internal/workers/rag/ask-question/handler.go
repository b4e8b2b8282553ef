// internal/workers/rag/ask-question/handler.go
package askquestion

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"kurio/internal/common/camunda"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/rag"
)

const TaskType = "ask-question"

type Asker interface {
	Ask(ctx context.Context, question string, opts ...rag.Option) (*rag.Answer, error)
}

type Handler struct {
	config *Config
	asker  Asker
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, asker Asker, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		asker:  asker,
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
		h.errors.HandleJobError(context.Background(), client, job,
			apperrors.NewQuestionInvalidError("Job variables must be a JSON object with a question field"))
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
	answer, err := h.asker.Ask(ctx, input.Question, input.options()...)
	if err != nil {
		return nil, apperrors.FromRAG(err)
	}

	h.logger.Info("question answered", map[string]interface{}{
		"answerLength": len(answer.Answer),
	})
	return &Output{Answer: answer.Answer, AnswerMetadata: answer.Metadata}, nil
}

// options keeps the client defaults for every field the process left unset.
func (in *Input) options() []rag.Option {
	var opts []rag.Option
	if in.RetrievalMethod != "" {
		opts = append(opts, rag.WithRetrievalMethod(rag.RetrievalMethod(in.RetrievalMethod)))
	}
	if in.K != nil {
		opts = append(opts, rag.WithK(*in.K))
	}
	if in.Retries != nil {
		opts = append(opts, rag.WithRetries(*in.Retries))
	}
	return opts
}
