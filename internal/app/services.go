package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kurio/internal/api"
	"kurio/internal/common/auth"
	"kurio/internal/common/aws"
	"kurio/internal/common/config"
	"kurio/internal/common/contentful"
	"kurio/internal/common/logger"
	"kurio/internal/common/rag"
	"kurio/internal/common/storage"
	"kurio/internal/entries"
	"kurio/internal/financials"
	"kurio/internal/insights"
)

// Services holds everything the API and the workers serve. Entries and
// Auth are nil when their backends are not configured.
type Services struct {
	Asker      *rag.Client
	Entries    *entries.Service
	Searcher   *entries.Searcher
	Financials *financials.Service
	Insights   *insights.Service
	Auth       *auth.KeycloakClient

	res *Resources
}

// NewAsker builds the question client from the rag section.
func NewAsker(cfg *config.Config, log logger.Logger) (*rag.Client, error) {
	method, err := rag.ParseMethod(cfg.RAG.Method)
	if err != nil {
		return nil, fmt.Errorf("rag.retrieval_method: %w", err)
	}

	defaults := rag.DefaultOptions()
	defaults.Method = method
	defaults.Retries = cfg.RAG.Retries
	if cfg.RAG.K > 0 {
		defaults.K = cfg.RAG.K
	}

	return rag.NewClient(rag.Config{
		BaseURL:  cfg.RAG.ResolveBaseURL(cfg.App),
		Timeout:  config.GetDuration(cfg.RAG.Timeout),
		Defaults: defaults,
	}, log.WithFields(map[string]interface{}{"component": "rag"}))
}

// NewEDGARClient builds the SEC client from the sec section.
func NewEDGARClient(cfg *config.Config) *financials.EDGARClient {
	return financials.NewEDGARClient(financials.EDGARConfig{
		DataURL:   cfg.SEC.DataURL,
		WWWURL:    cfg.SEC.WWWURL,
		UserAgent: cfg.SEC.UserAgent,
		Timeout:   config.GetDuration(cfg.SEC.Timeout),
	})
}

// NewInsights builds the insights service. It reports the content API as not
// configured on every call when the space or token is missing.
func NewInsights(cfg *config.Config, res *Resources, log logger.Logger) *insights.Service {
	cc := cfg.Content.Contentful
	client, err := contentful.NewClient(contentful.Config{
		BaseURL:       cc.BaseURL,
		SpaceID:       cc.SpaceID,
		DeliveryToken: cc.DeliveryToken,
		Environment:   cc.Environment,
		Timeout:       config.GetDuration(cc.Timeout),
	}, log)

	var source insights.EntrySource
	if err == nil {
		source = client
	} else if !errors.Is(err, contentful.ErrNotConfigured) {
		log.Warn("content client disabled", map[string]interface{}{"error": err.Error()})
	}
	return insights.NewService(source, cc.InsightsType, res.observability(), log)
}

// NewServices assembles every service over res.
func NewServices(ctx context.Context, cfg *config.Config, res *Resources, log logger.Logger) (*Services, error) {
	asker, err := NewAsker(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Asker:    asker,
		Insights: NewInsights(cfg, res, log),
		res:      res,
	}

	s.Financials = newFinancials(cfg, res, log)

	if res.Postgres != nil {
		s.Entries, err = s.newEntries(ctx, cfg, res, log)
		if err != nil {
			return nil, err
		}
	}

	if kc := cfg.Auth.Keycloak; kc.URL != "" && kc.Realm != "" {
		s.Auth = auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret)
	}
	return s, nil
}

func newFinancials(cfg *config.Config, res *Resources, log logger.Logger) *financials.Service {
	var (
		cache financials.Cache
		store financials.Store
	)
	if res.Redis != nil {
		ttl := time.Duration(cfg.Database.Redis.FinancialsTTL) * time.Second
		cache = financials.NewRedisCache(res.Redis, ttl)
	}
	if res.Postgres != nil {
		store = financials.NewPostgresStore(res.Postgres)
	}
	return financials.NewService(NewEDGARClient(cfg), cache, store, res.observability(),
		log.WithFields(map[string]interface{}{"component": "financials"}))
}

func (s *Services) newEntries(ctx context.Context, cfg *config.Config, res *Resources, log logger.Logger) (*entries.Service, error) {
	deps := entries.Deps{
		Store:  entries.NewPostgresStore(res.Postgres),
		Images: storage.NewImageResolver(cfg.Storage.Bucket, cfg.Storage.ThumbnailFolder),
		Logger: log.WithFields(map[string]interface{}{"component": "entries"}),
	}

	if res.Redis != nil {
		deps.Feed = entries.NewFeed(res.Redis, cfg.Database.Redis.EntryChannel, deps.Logger)
	}
	if res.Elasticsearch != nil {
		s.Searcher = entries.NewSearcher(res.Elasticsearch, cfg.Database.Elasticsearch.EntryIndex)
		deps.Index = s.Searcher
	}

	if email := cfg.Notifications.Email; email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region, email.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("moderator notifications: %w", err)
		}
		deps.Notifier = ses
		deps.Moderators = splitList(email.ToEmail)
	}

	return entries.NewService(deps), nil
}

// Prepare creates the tables and the search index when they are missing.
func (s *Services) Prepare(ctx context.Context) error {
	if s.res.Postgres != nil {
		if err := s.res.Postgres.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	if s.Searcher != nil {
		if err := s.Searcher.EnsureIndex(ctx); err != nil {
			return err
		}
	}
	return nil
}

// APIDeps hands the services to the router, leaving missing ones as nil
// interfaces so their routes answer 503.
func (s *Services) APIDeps() api.Deps {
	deps := api.Deps{
		Asker:      s.Asker,
		Financials: s.Financials,
		Insights:   s.Insights,
		Checks:     map[string]api.HealthCheck{},
	}
	if s.Entries != nil {
		deps.Entries = s.Entries
	}
	if s.Auth != nil {
		deps.Auth = s.Auth
	}
	for name, check := range s.res.Checks() {
		deps.Checks[name] = check
	}
	return deps
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
