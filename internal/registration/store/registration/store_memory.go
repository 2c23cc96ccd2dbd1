package registration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"turnstile/internal/registration/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

// pairKey is the uniqueness key for (student, event).
type pairKey struct {
	student id.StudentID
	event   id.EventID
}

// entry wraps one registration with its own mutex so state transitions on
// different registrations never serialize each other. The store-level RWMutex
// guards only the maps.
type entry struct {
	mu  sync.Mutex
	reg models.Registration
}

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested registration does not exist
// - Return ErrConflict when the (student, event) pair is already registered
// - Return ErrAlreadyUsed when a transition loses to a prior check-in;
//   the conflicting record is returned alongside the error so callers can
//   report the original check-in time
// - Return ErrInvalidState when the registration is void
// - Return nil for successful operations
type InMemoryRegistrationStore struct {
	mu     sync.RWMutex
	byID   map[id.RegistrationID]*entry
	byPair map[pairKey]id.RegistrationID
}

// New constructs an empty in-memory registration store.
func New() *InMemoryRegistrationStore {
	return &InMemoryRegistrationStore{
		byID:   make(map[id.RegistrationID]*entry),
		byPair: make(map[pairKey]id.RegistrationID),
	}
}

// Create inserts a registration, enforcing pair uniqueness atomically under
// the store lock; there is no separate check-then-insert window.
func (s *InMemoryRegistrationStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{student: reg.StudentID, event: reg.EventID}
	if _, exists := s.byPair[key]; exists {
		return fmt.Errorf("registration already exists for pair: %w", sentinel.ErrConflict)
	}
	s.byID[reg.ID] = &entry{reg: *reg}
	s.byPair[key] = reg.ID
	return nil
}

func (s *InMemoryRegistrationStore) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	e, ok := s.byID[regID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.reg
	return &cp, nil
}

// MarkCheckedIn atomically transitions issued -> checked_in. The per-entry
// mutex makes the compare-and-set indivisible: of N concurrent calls for the
// same registration, exactly one observes issued.
// On failure the current record is still returned so callers can surface the
// original check-in time (duplicate) or the void state.
func (s *InMemoryRegistrationStore) MarkCheckedIn(_ context.Context, regID id.RegistrationID, at time.Time, deviceID id.DeviceID) (*models.Registration, error) {
	s.mu.RLock()
	e, ok := s.byID[regID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.reg.Status {
	case models.StatusIssued:
		checkedInAt := at
		e.reg.Status = models.StatusCheckedIn
		e.reg.CheckedInAt = &checkedInAt
		e.reg.CheckedInBy = deviceID
		e.reg.UpdatedAt = at
		cp := e.reg
		return &cp, nil
	case models.StatusCheckedIn:
		cp := e.reg
		return &cp, fmt.Errorf("registration already checked in: %w", sentinel.ErrAlreadyUsed)
	default: // void
		cp := e.reg
		return &cp, fmt.Errorf("registration voided: %w", sentinel.ErrInvalidState)
	}
}

// SetVoid transitions issued -> void. Voiding an already-void registration is
// a no-op; voiding a checked-in one fails with ErrAlreadyUsed.
func (s *InMemoryRegistrationStore) SetVoid(_ context.Context, regID id.RegistrationID, at time.Time) error {
	s.mu.RLock()
	e, ok := s.byID[regID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.reg.Status {
	case models.StatusCheckedIn:
		return fmt.Errorf("registration already checked in: %w", sentinel.ErrAlreadyUsed)
	case models.StatusVoid:
		return nil
	default:
		e.reg.Status = models.StatusVoid
		e.reg.UpdatedAt = at
		return nil
	}
}

// ForceVoid voids regardless of current status. The privileged override path
// only; CheckedInAt is preserved so the audit trail keeps the attendance fact.
func (s *InMemoryRegistrationStore) ForceVoid(_ context.Context, regID id.RegistrationID, at time.Time) error {
	s.mu.RLock()
	e, ok := s.byID[regID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reg.Status = models.StatusVoid
	e.reg.UpdatedAt = at
	return nil
}

// ListByEvent returns all registrations for an event in issuance order
// (CreatedAt, then ID for a stable tiebreak).
func (s *InMemoryRegistrationStore) ListByEvent(_ context.Context, eventID id.EventID) ([]*models.Registration, error) {
	s.mu.RLock()
	entries := make([]*entry, 0)
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*models.Registration
	for _, e := range entries {
		e.mu.Lock()
		if e.reg.EventID == eventID {
			cp := e.reg
			out = append(out, &cp)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ListCheckedIn returns all checked-in registrations across events, most
// recent check-in first.
func (s *InMemoryRegistrationStore) ListCheckedIn(_ context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	entries := make([]*entry, 0)
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*models.Registration
	for _, e := range entries {
		e.mu.Lock()
		if e.reg.CheckedInAt != nil {
			cp := e.reg
			out = append(out, &cp)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckedInAt.Equal(*out[j].CheckedInAt) {
			return out[i].CheckedInAt.After(*out[j].CheckedInAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CountLiveByEvent counts non-void registrations, for capacity checks.
func (s *InMemoryRegistrationStore) CountLiveByEvent(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	entries := make([]*entry, 0)
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.reg.EventID == eventID && e.reg.Status != models.StatusVoid {
			count++
		}
		e.mu.Unlock()
	}
	return count, nil
}

func (s *InMemoryRegistrationStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *InMemoryRegistrationStore) CountCheckedIn(ctx context.Context) (int, error) {
	regs, err := s.ListCheckedIn(ctx)
	if err != nil {
		return 0, err
	}
	return len(regs), nil
}
