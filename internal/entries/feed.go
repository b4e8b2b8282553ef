package entries

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"kurio/internal/common/database"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
)

// LoadFunc produces a fresh ordered snapshot.
type LoadFunc func(ctx context.Context) ([]Entry, error)

// Feed broadcasts entry changes over a Redis channel.
type Feed struct {
	redis   *database.RedisClient
	channel string
	logger  logger.Logger
}

func NewFeed(redis *database.RedisClient, channel string, log logger.Logger) *Feed {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Feed{redis: redis, channel: channel, logger: log}
}

// Notify tells every subscriber that the entry set changed.
func (f *Feed) Notify(ctx context.Context, entryID string) error {
	if err := f.redis.Publish(ctx, f.channel, entryID); err != nil {
		return fmt.Errorf("publish entry change: %w", err)
	}
	return nil
}

// Subscribe delivers load's result immediately and again after every change
// notification. The subscription ends when ctx is done or Close is called.
func (f *Feed) Subscribe(ctx context.Context, load LoadFunc) (*Subscription, error) {
	ps, err := f.redis.Subscribe(ctx, f.channel)
	if err != nil {
		return nil, err
	}

	initial, err := load(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		snapshots: make(chan []Entry, 1),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	metrics.FeedSubscribers.Inc()
	go sub.run(ctx, ps, load, initial, f.logger)
	return sub, nil
}

// Subscription is a live view of the curated entries.
type Subscription struct {
	snapshots chan []Entry
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Snapshots is closed once the subscription ends.
func (s *Subscription) Snapshots() <-chan []Entry {
	return s.snapshots
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Subscription) run(ctx context.Context, ps *redis.PubSub, load LoadFunc, initial []Entry, log logger.Logger) {
	defer close(s.done)
	defer close(s.snapshots)
	defer metrics.FeedSubscribers.Dec()
	defer ps.Close()

	if !s.send(ctx, initial) {
		return
	}

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-messages:
			if !ok {
				return
			}
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("Failed to refresh entry snapshot", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if !s.send(ctx, snapshot) {
				return
			}
		}
	}
}

// send replaces an undelivered snapshot so slow readers only see the latest one.
func (s *Subscription) send(ctx context.Context, snapshot []Entry) bool {
	select {
	case <-s.snapshots:
	default:
	}
	select {
	case s.snapshots <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
