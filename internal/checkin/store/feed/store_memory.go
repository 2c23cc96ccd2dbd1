package feed

import (
	"context"
	"sync"

	"turnstile/internal/checkin/models"
)

// InMemoryFeedStore is the single-instance feed backing used in development
// and tests.
type InMemoryFeedStore struct {
	mu      sync.RWMutex
	entries []models.FeedEntry
	size    int
}

// NewInMemory constructs an in-memory feed retaining size entries.
func NewInMemory(size int) *InMemoryFeedStore {
	if size <= 0 {
		size = 50
	}
	return &InMemoryFeedStore{size: size}
}

// Push prepends an entry, dropping the oldest when full.
func (s *InMemoryFeedStore) Push(_ context.Context, entry models.FeedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]models.FeedEntry{entry}, s.entries...)
	if len(s.entries) > s.size {
		s.entries = s.entries[:s.size]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *InMemoryFeedStore) Recent(_ context.Context, limit int) ([]models.FeedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]models.FeedEntry, limit)
	copy(out, s.entries[:limit])
	return out, nil
}
