package financials

import (
	"context"
	"errors"
	"strings"
	"time"

	"kurio/internal/common/database"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
	"kurio/internal/common/observability"
)

// Fetcher retrieves a fresh summary, normally from EDGAR.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) (*Financials, error)
}

type Cache interface {
	Get(ctx context.Context, ticker string) (*Financials, error)
	Set(ctx context.Context, f *Financials) error
}

type Store interface {
	Save(ctx context.Context, f *Financials) error
	Load(ctx context.Context, ticker string) (*Financials, error)
}

// Service serves summaries from cache, then EDGAR. When EDGAR fails for a
// reason other than "not found", the last stored summary is served instead.
// Cache and Store may be nil.
type Service struct {
	fetcher Fetcher
	cache   Cache
	store   Store
	obs     *observability.Observability
	logger  logger.Logger
}

func NewService(fetcher Fetcher, cache Cache, store Store, obs *observability.Observability, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{fetcher: fetcher, cache: cache, store: store, obs: obs, logger: log}
}

// Get returns FINANCIALS_NOT_FOUND when any lookup step comes up empty and
// SEC_REQUEST_FAILED for every other failure.
func (s *Service) Get(ctx context.Context, ticker string) (*Financials, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperrors.NewFinancialsNotFoundError("Ticker is required.")
	}

	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{"ticker": ticker})

	if cached := s.fromCache(ctx, ticker, log); cached != nil {
		s.obs.Record(ctx, "financials.get", "cached", time.Since(start))
		return cached, nil
	}

	f, err := s.fetcher.Fetch(ctx, ticker)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.obs.Record(ctx, "financials.get", "not_found", time.Since(start))
			log.Info("No financials for ticker", map[string]interface{}{"reason": err.Error()})
			return nil, apperrors.NewFinancialsNotFoundError(err.Error())
		}
		if stored := s.fromStore(ctx, ticker, log); stored != nil {
			log.Warn("EDGAR unavailable, serving stored financials", map[string]interface{}{"error": err.Error()})
			s.obs.Record(ctx, "financials.get", "stale", time.Since(start))
			return stored, nil
		}
		s.obs.Record(ctx, "financials.get", "error", time.Since(start))
		log.Error("Failed to fetch financials", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewSECRequestFailedError(err)
	}

	s.remember(ctx, f, log)
	s.obs.Record(ctx, "financials.get", "success", time.Since(start))
	return f, nil
}

func (s *Service) fromCache(ctx context.Context, ticker string, log logger.Logger) *Financials {
	if s.cache == nil {
		return nil
	}
	f, err := s.cache.Get(ctx, ticker)
	switch {
	case err == nil:
		metrics.FinancialsCacheLookups.WithLabelValues("hit").Inc()
		return f
	case errors.Is(err, database.ErrCacheMiss):
		metrics.FinancialsCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.FinancialsCacheLookups.WithLabelValues("error").Inc()
		log.Warn("Financials cache read failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (s *Service) fromStore(ctx context.Context, ticker string, log logger.Logger) *Financials {
	if s.store == nil {
		return nil
	}
	f, err := s.store.Load(ctx, ticker)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn("Stored financials unavailable", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	return f
}

func (s *Service) remember(ctx context.Context, f *Financials, log logger.Logger) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, f); err != nil {
			log.Warn("Failed to cache financials", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, f); err != nil {
			log.Warn("Failed to store financials", map[string]interface{}{"error": err.Error()})
		}
	}
}
