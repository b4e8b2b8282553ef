// Package app connects the shared infrastructure and assembles the services
// the binaries expose.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kurio/internal/common/config"
	"kurio/internal/common/database"
	"kurio/internal/common/observability"
)

// Resources are the infrastructure clients shared by every service. A nil
// field means that backend is not configured.
type Resources struct {
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Observability *observability.Observability
}

// Backoff controls the connection retries at startup.
type Backoff struct {
	Attempts     int
	InitialDelay time.Duration
}

var DefaultBackoff = Backoff{Attempts: 10, InitialDelay: 2 * time.Second}

// RetryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func RetryWithBackoff(ctx context.Context, b Backoff, log *zap.Logger, operationName string, operation func(context.Context) error) error {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}

	var err error
	delay := b.InitialDelay
	for i := 0; i < b.Attempts; i++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if i == b.Attempts-1 {
			break
		}

		log.Warn(operationName+" failed, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1),
			zap.Int("maxRetries", b.Attempts),
			zap.Duration("nextRetryIn", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, b.Attempts, err)
}

// Connect opens every configured backend. Postgres and Redis are skipped when
// their host is empty, Elasticsearch when it has no addresses.
func Connect(ctx context.Context, cfg *config.Config, b Backoff, log *zap.Logger) (*Resources, error) {
	res := &Resources{}

	if cfg.Database.Postgres.Host != "" {
		err := RetryWithBackoff(ctx, b, log, "PostgreSQL connection", func(ctx context.Context) error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			res.Postgres = pg
			return nil
		})
		if err != nil {
			res.Close()
			return nil, err
		}
		log.Info("PostgreSQL connected successfully")
	}

	if cfg.Database.Redis.Address != "" {
		err := RetryWithBackoff(ctx, b, log, "Redis connection", func(ctx context.Context) error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				_ = rc.Close()
				return err
			}
			res.Redis = rc
			return nil
		})
		if err != nil {
			res.Close()
			return nil, err
		}
		log.Info("Redis connected successfully")
	}

	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err := RetryWithBackoff(ctx, b, log, "Elasticsearch connection", func(ctx context.Context) error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			res.Elasticsearch = es
			return nil
		})
		if err != nil {
			res.Close()
			return nil, err
		}
		log.Info("Elasticsearch connected successfully")
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("observability disabled", zap.Error(err))
	}
	res.Observability = obs

	return res, nil
}

// Close releases every open backend.
func (r *Resources) Close() {
	if r.Postgres != nil {
		_ = r.Postgres.Close()
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.Observability != nil {
		_ = r.Observability.Shutdown()
	}
}

func (r *Resources) observability() *observability.Observability {
	if r == nil {
		return nil
	}
	return r.Observability
}

// Checks returns a health check per connected backend.
func (r *Resources) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if r.Postgres != nil {
		checks["postgres"] = r.Postgres.Ping
	}
	if r.Redis != nil {
		checks["redis"] = r.Redis.Ping
	}
	if r.Elasticsearch != nil {
		checks["elasticsearch"] = r.Elasticsearch.Ping
	}
	return checks
}
