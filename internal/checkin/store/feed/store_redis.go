// Package feed maintains the recent-scans feed shown on staff dashboards.
// The feed is a bounded projection of the scan log: losing it loses nothing,
// the log remains the source of truth.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"turnstile/internal/checkin/models"
	"turnstile/pkg/platform/sentinel"
)

var (
	feedPushDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "turnstile_feed_push_duration_ms",
		Help:    "Latency of recent-scans feed pushes in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const feedKey = "feed:recent_scans"

// RedisFeedStore keeps the feed in a capped Redis list so every instance
// behind the load balancer serves the same view.
type RedisFeedStore struct {
	client *redis.Client
	size   int
}

// RedisFeedOption configures a RedisFeedStore.
type RedisFeedOption func(*RedisFeedStore)

// WithFeedSize overrides the number of entries retained.
func WithFeedSize(size int) RedisFeedOption {
	return func(s *RedisFeedStore) {
		if size > 0 {
			s.size = size
		}
	}
}

// NewRedis constructs a Redis-backed feed store.
func NewRedis(client *redis.Client, opts ...RedisFeedOption) *RedisFeedStore {
	s := &RedisFeedStore{client: client, size: 50}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Push prepends an entry and trims the list to the configured size. Push and
// trim run in one pipeline so the list cannot grow unbounded between them.
func (s *RedisFeedStore) Push(ctx context.Context, entry models.FeedEntry) error {
	start := time.Now()
	defer func() {
		feedPushDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal feed entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, feedKey, payload)
	pipe.LTrim(ctx, feedKey, 0, int64(s.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: push feed entry: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Entries that no longer
// decode are skipped rather than failing the whole read.
func (s *RedisFeedStore) Recent(ctx context.Context, limit int) ([]models.FeedEntry, error) {
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	raw, err := s.client.LRange(ctx, feedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read feed: %v", sentinel.ErrUnavailable, err)
	}

	out := make([]models.FeedEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.FeedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
