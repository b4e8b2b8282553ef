package entries

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
	"kurio/internal/common/storage"
)

// Index is the full-text side of the entry set.
type Index interface {
	Index(ctx context.Context, e Entry) error
	Search(ctx context.Context, text string, limit int) ([]Entry, error)
}

// Notifier sends plain-text mail, e.g. the SES client.
type Notifier interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// Publisher announces entry changes to subscribers.
type Publisher interface {
	Notify(ctx context.Context, entryID string) error
	Subscribe(ctx context.Context, load LoadFunc) (*Subscription, error)
}

// Deps wires the service. Only Store is required.
type Deps struct {
	Store      Store
	Feed       Publisher
	Index      Index
	Notifier   Notifier
	Moderators []string
	Images     *storage.ImageResolver
	Logger     logger.Logger
	Now        func() time.Time
	NewID      func() string
}

type Service struct {
	deps Deps
	log  logger.Logger
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Service{deps: deps, log: deps.Logger}
}

// Submit stores a submission for moderation. Publishing, indexing and
// moderator mail run concurrently after the insert; their failures are logged only.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Entry, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	entry := Entry{
		ID:         s.deps.NewID(),
		JobTitle:   sub.JobTitle,
		TypicalDay: sub.TypicalDay,
		Category:   sub.Category,
		ImageURL:   sub.ImageURL,
		Source:     sub.Source,
		CreatedAt:  s.deps.Now().UTC(),
	}

	if err := s.deps.Store.InsertRaw(ctx, entry); err != nil {
		s.log.Error("Failed to store submission", map[string]interface{}{
			"entryId": entry.ID,
			"error":   err.Error(),
		})
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}
	metrics.EntriesSubmitted.Inc()

	g, gctx := errgroup.WithContext(ctx)
	if s.deps.Feed != nil {
		g.Go(func() error {
			s.bestEffort("publish", entry.ID, s.deps.Feed.Notify(gctx, entry.ID))
			return nil
		})
	}
	if s.deps.Index != nil {
		g.Go(func() error {
			s.bestEffort("index", entry.ID, s.deps.Index.Index(gctx, entry))
			return nil
		})
	}
	if s.deps.Notifier != nil && len(s.deps.Moderators) > 0 {
		g.Go(func() error {
			_, err := s.deps.Notifier.SendText(gctx, s.deps.Moderators,
				"New job entry: "+entry.JobTitle, moderationMail(entry))
			s.bestEffort("notify", entry.ID, err)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("Entry submitted", map[string]interface{}{
		"entryId":  entry.ID,
		"category": entry.Category,
	})
	return &entry, nil
}

func (s *Service) bestEffort(step, entryID string, err error) {
	if err == nil {
		return
	}
	s.log.Warn("Post-submit step failed", map[string]interface{}{
		"step":    step,
		"entryId": entryID,
		"error":   err.Error(),
	})
}

func moderationMail(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job title: %s\n", e.JobTitle)
	fmt.Fprintf(&b, "Category: %s\n", e.Category)
	if e.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", e.Source)
	}
	fmt.Fprintf(&b, "Submitted: %s\n\n", e.CreatedAt.Format(time.RFC3339))
	b.WriteString(e.TypicalDay)
	return b.String()
}

// List returns the newest curated entries, or the top few of one category.
func (s *Service) List(ctx context.Context, category string) ([]Entry, error) {
	q := Query{Limit: ListLimit}
	if category = strings.TrimSpace(category); category != "" {
		q = Query{Category: category, Limit: CategoryLimit}
	}
	return s.recent(ctx, q)
}

func (s *Service) Trending(ctx context.Context) (Trending, error) {
	list, err := s.recent(ctx, Query{Limit: TrendingLimit})
	if err != nil {
		return Trending{}, err
	}
	return ComputeTrending(list), nil
}

func (s *Service) recent(ctx context.Context, q Query) ([]Entry, error) {
	list, err := s.deps.Store.Recent(ctx, q)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list_entries", err)
	}
	return s.resolveImages(list), nil
}

func (s *Service) resolveImages(list []Entry) []Entry {
	if s.deps.Images == nil {
		return list
	}
	for i := range list {
		list[i].ImageURL = s.deps.Images.Resolve(list[i].ImageURL)
	}
	return list
}

var errSearchDisabled = stderrors.New("search index not configured")

func (s *Service) Search(ctx context.Context, text string, limit int) ([]Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewEntryValidationFailedError("search text is required")
	}
	if s.deps.Index == nil {
		return nil, apperrors.NewSearchQueryFailedError("entries", errSearchDisabled)
	}

	found, err := s.deps.Index.Search(ctx, text, limit)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("entries", err)
	}
	return s.resolveImages(found), nil
}

// Subscribe streams List(ctx, category) snapshots as entries change.
func (s *Service) Subscribe(ctx context.Context, category string) (*Subscription, error) {
	if s.deps.Feed == nil {
		return nil, apperrors.NewInternalError(stderrors.New("entry feed not configured"))
	}
	sub, err := s.deps.Feed.Subscribe(ctx, func(ctx context.Context) ([]Entry, error) {
		return s.List(ctx, category)
	})
	if err != nil {
		return nil, apperrors.AsStandardError(err)
	}
	return sub, nil
}
