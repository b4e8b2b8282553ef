// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kurio/internal/app"
	"kurio/internal/common/camunda"
	"kurio/internal/common/config"
	"kurio/internal/common/logger"
	submitentry "kurio/internal/workers/entries/submit-entry"
	fetchfinancials "kurio/internal/workers/financials/fetch-financials"
	askquestion "kurio/internal/workers/rag/ask-question"
	"kurio/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		zap.NewExample().Fatal("invalid worker configuration", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	catalog := activities(cfg.App.Version)
	if err := catalog.Validate(); err != nil {
		zapLog.Fatal("invalid activity registry", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	res, err := app.Connect(ctx, cfg, app.DefaultBackoff, zapLog)
	if err != nil {
		zapLog.Fatal("backend connection failed", zap.Error(err))
	}
	defer res.Close()

	services, err := app.NewServices(ctx, cfg, res, log)
	if err != nil {
		zapLog.Fatal("service setup failed", zap.Error(err))
	}
	if err := services.Prepare(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.Register(zeebe.Zeebe(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(askquestion.TaskType, askquestion.NewHandler(
		askquestion.LoadConfig(config.GetWorkerConfig(cfg, askquestion.TaskType)),
		services.Asker, log,
	))
	register(submitentry.TaskType, submitentry.NewHandler(
		submitentry.LoadConfig(config.GetWorkerConfig(cfg, submitentry.TaskType)),
		services.Entries, log,
	))
	register(fetchfinancials.TaskType, fetchfinancials.NewHandler(
		fetchfinancials.LoadConfig(config.GetWorkerConfig(cfg, fetchfinancials.TaskType)),
		services.Financials, log,
	))
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		for name, check := range res.Checks() {
			if err := check(checkCtx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, name+": "+err.Error())
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(catalog)
	})
	mux.Handle("/metrics", promhttp.Handler())

	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping metrics server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// activities lists every task type this binary can serve.
func activities(version string) *registry.ActivityRegistry {
	return registry.New(version, askquestion.Activity, submitentry.Activity, fetchfinancials.Activity)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
