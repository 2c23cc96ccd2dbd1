package event

import (
	"context"
	"fmt"
	"sync"

	"turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[id.EventID]*models.Event
}

// New constructs an empty in-memory event store.
func New() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[id.EventID]*models.Event)}
}

func (s *InMemoryEventStore) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *InMemoryEventStore) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	cp := *event
	return &cp, nil
}

func (s *InMemoryEventStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}
