// Package api is the HTTP surface of the browsing site: question answering,
// job entries, company financials, insights and sign-in.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kurio/internal/common/auth"
	"kurio/internal/common/logger"
	"kurio/internal/common/rag"
	"kurio/internal/entries"
	"kurio/internal/financials"
	"kurio/internal/insights"
)

type Asker interface {
	Ask(ctx context.Context, question string, opts ...rag.Option) (*rag.Answer, error)
}

type EntryService interface {
	Submit(ctx context.Context, sub entries.Submission) (*entries.Entry, error)
	List(ctx context.Context, category string) ([]entries.Entry, error)
	Trending(ctx context.Context) (entries.Trending, error)
	Search(ctx context.Context, text string, limit int) ([]entries.Entry, error)
	Subscribe(ctx context.Context, category string) (*entries.Subscription, error)
}

type FinancialsService interface {
	Get(ctx context.Context, ticker string) (*financials.Financials, error)
}

type InsightsService interface {
	List(ctx context.Context) ([]insights.Insight, error)
}

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the services behind the routes. A nil service answers 503.
type Deps struct {
	Asker      Asker
	Entries    EntryService
	Financials FinancialsService
	Insights   InsightsService
	Auth       Authenticator
	Checks     map[string]HealthCheck
}

type Options struct {
	Version        string
	AllowedOrigins []string
	HealthTimeout  time.Duration
}

type Server struct {
	deps   Deps
	opts   Options
	logger logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, opts Options, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	s := &Server{deps: deps, opts: opts, logger: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(log), observe(), cors(opts.AllowedOrigins))

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/ask", s.ask)

		api.GET("/entries", s.listEntries)
		api.POST("/entries", s.submitEntry)
		api.GET("/entries/search", s.searchEntries)
		api.GET("/entries/stream", s.streamEntries)
		api.GET("/trending", s.trending)

		api.GET("/financials/:ticker", s.financials)
		api.GET("/insights", s.insights)

		api.POST("/auth/signin", s.signIn)
	}

	return r
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Kurio API",
		"version": s.opts.Version,
	})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.HealthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
