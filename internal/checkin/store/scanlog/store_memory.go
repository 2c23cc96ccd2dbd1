package scanlog

import (
	"context"
	"sync"

	"turnstile/internal/checkin/models"
	id "turnstile/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Append never rejects a well-formed record; the log is append-only
// - Read methods return empty results, not ErrNotFound, for unknown keys
// - Return wrapped infrastructure errors for backend failures
type InMemoryScanLogStore struct {
	mu      sync.RWMutex
	records []models.CheckInRecord
}

// New constructs an empty in-memory scan log.
func New() *InMemoryScanLogStore {
	return &InMemoryScanLogStore{}
}

// Append adds one immutable record. Records are stored in arrival order.
func (s *InMemoryScanLogStore) Append(_ context.Context, record models.CheckInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// ListByRegistration returns every attempt recorded against a registration,
// in append order.
func (s *InMemoryScanLogStore) ListByRegistration(_ context.Context, regID id.RegistrationID) ([]models.CheckInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CheckInRecord
	for _, r := range s.records {
		if r.RegistrationID == regID {
			out = append(out, r)
		}
	}
	return out, nil
}

// LatestAcceptedByRegistrations returns the most recent accepted record per
// registration, for the report's device column.
func (s *InMemoryScanLogStore) LatestAcceptedByRegistrations(_ context.Context, regIDs []id.RegistrationID) (map[id.RegistrationID]models.CheckInRecord, error) {
	wanted := make(map[id.RegistrationID]bool, len(regIDs))
	for _, regID := range regIDs {
		wanted[regID] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.RegistrationID]models.CheckInRecord)
	for _, r := range s.records {
		if r.Outcome != id.OutcomeAccepted || !wanted[r.RegistrationID] {
			continue
		}
		if prev, ok := out[r.RegistrationID]; !ok || r.At.After(prev.At) {
			out[r.RegistrationID] = r
		}
	}
	return out, nil
}

// ListRecentAccepted returns the latest accepted records, newest first.
func (s *InMemoryScanLogStore) ListRecentAccepted(_ context.Context, limit int) ([]models.CheckInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CheckInRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].Outcome == id.OutcomeAccepted {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}
