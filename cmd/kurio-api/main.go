// cmd/kurio-api/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kurio/internal/api"
	"kurio/internal/app"
	"kurio/internal/common/config"
	"kurio/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	router := api.NewRouter(services.APIDeps(), api.Options{
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Open entry streams end when the signal arrives.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		zapLog.Info("API listening",
			zap.String("address", cfg.Server.Address),
			zap.String("ragEndpoint", services.Asker.Endpoint()),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API shutdown failed", zap.Error(err))
	}
	zapLog.Info("API stopped gracefully")
}
