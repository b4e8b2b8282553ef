package insights

import (
	"context"
	"time"

	"kurio/internal/common/contentful"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/observability"
)

// EntrySource is the part of the content client the service needs.
type EntrySource interface {
	AllEntries(ctx context.Context, q contentful.Query) ([]contentful.Entry, error)
}

type Service struct {
	source      EntrySource
	contentType string
	obs         *observability.Observability
	logger      logger.Logger
}

// NewService accepts a nil source; List then reports the content API as not configured.
func NewService(source EntrySource, contentType string, obs *observability.Observability, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{source: source, contentType: contentType, obs: obs, logger: log}
}

// List returns every insight, newest first.
func (s *Service) List(ctx context.Context) ([]Insight, error) {
	if s.source == nil || s.contentType == "" {
		return nil, apperrors.NewContentNotConfiguredError()
	}

	start := time.Now()
	entries, err := s.source.AllEntries(ctx, contentful.Query{
		ContentType: s.contentType,
		Order:       []string{"-sys.createdAt"},
		Include:     2,
	})
	if err != nil {
		s.obs.Record(ctx, "insights.list", "error", time.Since(start))
		s.logger.Error("Failed to load insights", map[string]interface{}{
			"content_type": s.contentType,
			"error":        err,
		})
		return nil, apperrors.NewContentRequestFailedError(err)
	}

	out := make([]Insight, 0, len(entries))
	for _, e := range entries {
		out = append(out, Normalize(e))
	}
	s.obs.Record(ctx, "insights.list", "success", time.Since(start))
	return out, nil
}
