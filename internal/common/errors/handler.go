// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"kurio/internal/common/metrics"
)

const reportTimeout = 10 * time.Second

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports failed jobs back to the broker.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobFailure is how one failed job is reported: either failed with a retry
// budget, or thrown as a BPMN error the process can catch.
type JobFailure struct {
	Throw     bool
	Retries   int32
	Code      ErrorCode
	Message   string
	Category  string
	Variables map[string]interface{}
}

// ResolveJobFailure decides how err ends job. Every failure consumes one of
// the job's remaining retries and a code never grants more than its own
// retry count. A cancelled request hands the job back untouched so another
// worker can take it.
func ResolveJobFailure(job entities.Job, err error) JobFailure {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	f := JobFailure{
		Code:      stdErr.Code,
		Message:   bpmnErr.Message,
		Category:  GetErrorCategory(stdErr.Code),
		Variables: bpmnErr.ToErrorVariables(),
	}

	if stdErr.Code == ErrCodeRequestCanceled && job.Retries > 0 {
		f.Retries = job.Retries
		return f
	}

	remaining := job.Retries - 1
	if allowed := int32(bpmnErr.Retries); allowed < remaining {
		remaining = allowed
	}
	if remaining <= 0 {
		f.Throw = true
		return f
	}
	f.Retries = remaining
	return f
}

// HandleJobError reports err for job and records it in the worker metrics.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	f := ResolveJobFailure(job, err)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(f.Code)).Inc()

	fields := map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"workflowInstance": job.ProcessInstanceKey,
		"errorCode":        string(f.Code),
		"errorCategory":    f.Category,
		"message":          f.Message,
		"thrown":           f.Throw,
		"retriesLeft":      f.Retries,
	}
	h.logger.Error("Job failed", fields)

	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	var sendErr error
	if f.Throw {
		sendErr = throwError(ctx, client, job, f)
	} else {
		sendErr = failJob(ctx, client, job, f)
	}
	if sendErr != nil {
		fields["error"] = sendErr.Error()
		h.logger.Error("could not report job failure", fields)
	}
}

func failJob(ctx context.Context, client worker.JobClient, job entities.Job, f JobFailure) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(f.Retries).
		ErrorMessage(f.Message)

	vars, err := json.Marshal(f.Variables)
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	withVars, err := cmd.VariablesFromString(string(vars))
	if err != nil {
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}

func throwError(ctx context.Context, client worker.JobClient, job entities.Job, f JobFailure) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(string(f.Code)).
		ErrorMessage(f.Message)

	vars, err := json.Marshal(f.Variables)
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	withVars, err := cmd.VariablesFromString(string(vars))
	if err != nil {
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}
