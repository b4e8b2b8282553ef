// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"kurio/internal/common/config"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
)

// JobHandler processes one activated job and completes or fails it itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Register opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func Register(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	fields := map[string]interface{}{"taskType": taskType}
	if !wcfg.Enabled {
		log.Info("worker disabled", fields)
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	fields["maxJobsActive"] = wcfg.MaxJobsActive
	fields["timeoutMs"] = wcfg.Timeout
	log.Info("worker started", fields)
	return w
}

func instrument(taskType string, handler JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		handler.Handle(client, job)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	}
}

// DecodeVariables unmarshals the job's variables into out.
func DecodeVariables(job entities.Job, out interface{}) error {
	if err := json.Unmarshal([]byte(job.Variables), out); err != nil {
		return fmt.Errorf("parse job variables: %w", err)
	}
	return nil
}

// Complete sends output as the job's result variables, retrying transient
// broker failures.
func Complete(client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := Retry(ctx, DefaultRetryConfig, "complete job", func(ctx context.Context) error {
		cmd, err := client.NewCompleteJobCommand().
			JobKey(job.Key).
			VariablesFromObject(output)
		if err != nil {
			return err
		}
		_, err = cmd.Send(ctx)
		return err
	})
	if err != nil {
		log.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	log.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
	return nil
}
