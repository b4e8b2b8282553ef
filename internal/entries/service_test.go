package entries

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/storage"
)

type stubStore struct {
	mu        sync.Mutex
	inserted  []Entry
	insertErr error
	recent    []Entry
	recentErr error
	queries   []Query
}

func (s *stubStore) InsertRaw(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *stubStore) Recent(ctx context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	out := append([]Entry{}, s.recent...)
	return out, s.recentErr
}

type stubFeed struct {
	mu       sync.Mutex
	notified []string
	err      error
	load     LoadFunc
}

func (f *stubFeed) Notify(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, id)
	return f.err
}

func (f *stubFeed) Subscribe(ctx context.Context, load LoadFunc) (*Subscription, error) {
	f.load = load
	return &Subscription{}, nil
}

type stubIndex struct {
	mu      sync.Mutex
	indexed []Entry
	err     error
	found   []Entry
	text    string
	limit   int
}

func (i *stubIndex) Index(ctx context.Context, e Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, e)
	return i.err
}

func (i *stubIndex) Search(ctx context.Context, text string, limit int) ([]Entry, error) {
	i.text, i.limit = text, limit
	return i.found, i.err
}

type stubNotifier struct {
	mu      sync.Mutex
	to      []string
	subject string
	body    string
	err     error
}

func (n *stubNotifier) SendText(ctx context.Context, to []string, subject, body string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.to, n.subject, n.body = to, subject, body
	return "msg-1", n.err
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, deps Deps) *Service {
	deps.Logger = logger.NewTestLogger(t)
	deps.Now = func() time.Time { return fixedNow }
	deps.NewID = func() string { return "entry-1" }
	return NewService(deps)
}

func TestService_Submit(t *testing.T) {
	store := &stubStore{}
	feed := &stubFeed{}
	index := &stubIndex{}
	notifier := &stubNotifier{}
	svc := newTestService(t, Deps{
		Store: store, Feed: feed, Index: index, Notifier: notifier,
		Moderators: []string{"mod@kurio-ai.com"},
	})

	got, err := svc.Submit(context.Background(), Submission{JobTitle: "  Nurse ", TypicalDay: "Rounds at 7am"})
	require.NoError(t, err)

	want := Entry{ID: "entry-1", JobTitle: "Nurse", TypicalDay: "Rounds at 7am", Category: "General", CreatedAt: fixedNow}
	assert.Equal(t, want, *got)
	assert.Equal(t, []Entry{want}, store.inserted)
	assert.Equal(t, []string{"entry-1"}, feed.notified)
	assert.Equal(t, []Entry{want}, index.indexed)
	assert.Equal(t, []string{"mod@kurio-ai.com"}, notifier.to)
	assert.Equal(t, "New job entry: Nurse", notifier.subject)
	assert.Contains(t, notifier.body, "Rounds at 7am")
}

func TestService_SubmitSideChannelsAreBestEffort(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, Deps{
		Store:      store,
		Feed:       &stubFeed{err: errors.New("redis down")},
		Index:      &stubIndex{err: errors.New("es down")},
		Notifier:   &stubNotifier{err: errors.New("ses throttled")},
		Moderators: []string{"mod@kurio-ai.com"},
	})

	got, err := svc.Submit(context.Background(), Submission{JobTitle: "Chef", TypicalDay: "Prep"})
	require.NoError(t, err)
	assert.Equal(t, "entry-1", got.ID)
	assert.Len(t, store.inserted, 1)
}

func TestService_SubmitValidation(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, Deps{Store: store})

	_, err := svc.Submit(context.Background(), Submission{JobTitle: "   ", TypicalDay: "Prep"})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeEntryValidationFailed, stdErr.Code)
	assert.Empty(t, store.inserted)
}

func TestService_SubmitStoreFailure(t *testing.T) {
	feed := &stubFeed{}
	svc := newTestService(t, Deps{Store: &stubStore{insertErr: errors.New("disk full")}, Feed: feed})

	_, err := svc.Submit(context.Background(), Submission{JobTitle: "Chef", TypicalDay: "Prep"})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.Empty(t, feed.notified)
}

func TestService_List(t *testing.T) {
	store := &stubStore{recent: []Entry{
		{ID: "1", ImageURL: "nurse.png"},
		{ID: "2", ImageURL: "https://cdn.example.com/chef.png"},
		{ID: "3"},
	}}
	svc := newTestService(t, Deps{Store: store, Images: storage.NewImageResolver("bucket", "job_thumbnails")})

	got, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/bucket/o/job_thumbnails%2Fnurse.png?alt=media", got[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/chef.png", got[1].ImageURL)
	assert.Equal(t, "", got[2].ImageURL)

	_, err = svc.List(context.Background(), " Tech ")
	require.NoError(t, err)
	assert.Equal(t, []Query{{Limit: ListLimit}, {Category: "Tech", Limit: CategoryLimit}}, store.queries)
}

func TestService_ListFailure(t *testing.T) {
	svc := newTestService(t, Deps{Store: &stubStore{recentErr: errors.New("timeout")}})
	_, err := svc.List(context.Background(), "")

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeDatabaseQueryFailed, stdErr.Code)
}

func TestService_Trending(t *testing.T) {
	store := &stubStore{recent: []Entry{{JobTitle: "Nurse", Category: "Health"}, {JobTitle: "nurse"}}}
	svc := newTestService(t, Deps{Store: store})

	got, err := svc.Trending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: "nurse", Count: 2}}, got.Jobs)
	assert.Equal(t, []Query{{Limit: TrendingLimit}}, store.queries)
}

func TestService_Search(t *testing.T) {
	index := &stubIndex{found: []Entry{{ID: "1"}}}
	svc := newTestService(t, Deps{Store: &stubStore{}, Index: index})

	got, err := svc.Search(context.Background(), "  nurse ", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "nurse", index.text)
	assert.Equal(t, 5, index.limit)
}

func TestService_SearchErrors(t *testing.T) {
	var stdErr *apperrors.StandardError

	_, err := newTestService(t, Deps{Store: &stubStore{}, Index: &stubIndex{}}).Search(context.Background(), " ", 5)
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeEntryValidationFailed, stdErr.Code)

	_, err = newTestService(t, Deps{Store: &stubStore{}}).Search(context.Background(), "nurse", 5)
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, stdErr.Code)

	_, err = newTestService(t, Deps{Store: &stubStore{}, Index: &stubIndex{err: errors.New("es down")}}).Search(context.Background(), "nurse", 5)
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, stdErr.Code)
}

func TestService_SubscribeLoadsCategoryList(t *testing.T) {
	store := &stubStore{recent: []Entry{{ID: "1"}}}
	feed := &stubFeed{}
	svc := newTestService(t, Deps{Store: store, Feed: feed})

	_, err := svc.Subscribe(context.Background(), "Health")
	require.NoError(t, err)
	require.NotNil(t, feed.load)

	got, err := feed.load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []Query{{Category: "Health", Limit: CategoryLimit}}, store.queries)
}

func TestService_SubscribeWithoutFeed(t *testing.T) {
	_, err := newTestService(t, Deps{Store: &stubStore{}}).Subscribe(context.Background(), "")
	assert.Error(t, err)
}
