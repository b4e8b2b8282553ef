package entries

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kurio/internal/common/database"
	"kurio/internal/common/logger"
)

const testChannel = "kurio:entries:changed"

// startRedis returns a client and a stop func; deferring stop before
// goleak.VerifyNone runs keeps server goroutines out of the leak check.
func startRedis(t *testing.T) (*database.RedisClient, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

func versionedLoad(calls *int32) LoadFunc {
	return func(ctx context.Context) ([]Entry, error) {
		n := atomic.AddInt32(calls, 1)
		return []Entry{{ID: string(rune('a' + n - 1))}}, nil
	}
}

func receive(t *testing.T, sub *Subscription) []Entry {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshots closed")
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func waitClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-sub.Snapshots():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("snapshots channel never closed")
		}
	}
}

func TestFeed_SubscribeDeliversInitialAndChangedSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, logger.NewTestLogger(t))
	var calls int32

	sub, err := feed.Subscribe(context.Background(), versionedLoad(&calls))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "a", receive(t, sub)[0].ID)

	require.NoError(t, feed.Notify(context.Background(), "entry-1"))
	assert.Equal(t, "b", receive(t, sub)[0].ID)

	require.NoError(t, feed.Notify(context.Background(), "entry-2"))
	assert.Equal(t, "c", receive(t, sub)[0].ID)

	sub.Close()
	waitClosed(t, sub)
}

func TestFeed_ContextCancellationEndsSubscription(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	sub, err := feed.Subscribe(ctx, versionedLoad(&calls))
	require.NoError(t, err)

	receive(t, sub)
	cancel()
	waitClosed(t, sub)

	// Close after the goroutine already exited is a no-op.
	sub.Close()
	sub.Close()
}

func TestFeed_CloseWithoutReading(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, nil)
	var calls int32
	sub, err := feed.Subscribe(context.Background(), versionedLoad(&calls))
	require.NoError(t, err)

	require.NoError(t, feed.Notify(context.Background(), "entry-1"))
	sub.Close()
}

func TestFeed_ResubscribeAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, nil)
	var calls int32

	first, err := feed.Subscribe(context.Background(), versionedLoad(&calls))
	require.NoError(t, err)
	receive(t, first)
	first.Close()

	second, err := feed.Subscribe(context.Background(), versionedLoad(&calls))
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, "b", receive(t, second)[0].ID)
}

func TestFeed_InitialLoadFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, nil)
	_, err := feed.Subscribe(context.Background(), func(ctx context.Context) ([]Entry, error) {
		return nil, errors.New("db down")
	})
	assert.ErrorContains(t, err, "db down")
}

func TestFeed_RefreshFailureKeepsSubscription(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, stop := startRedis(t)
	defer stop()

	feed := NewFeed(client, testChannel, logger.NewTestLogger(t))
	var calls int32
	load := func(ctx context.Context) ([]Entry, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			return nil, errors.New("transient")
		}
		return []Entry{{ID: "ok"}}, nil
	}

	sub, err := feed.Subscribe(context.Background(), load)
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	require.NoError(t, feed.Notify(context.Background(), "entry-1"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Notify(context.Background(), "entry-2"))
	assert.Equal(t, "ok", receive(t, sub)[0].ID)
}

func TestFeed_NotifyError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPublish(testChannel, "entry-1").SetErr(errors.New("redis down"))

	feed := NewFeed(database.NewRedisFromClient(db), testChannel, nil)
	err := feed.Notify(context.Background(), "entry-1")

	assert.ErrorContains(t, err, "redis down")
	assert.NoError(t, mock.ExpectationsWereMet())
}
