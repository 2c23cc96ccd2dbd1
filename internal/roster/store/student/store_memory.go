package student

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
// - Return ErrConflict when a uniqueness constraint would be violated
// - Return nil for successful operations
type InMemoryStudentStore struct {
	mu       sync.RWMutex
	students map[id.StudentID]*models.Student
	byNo     map[string]id.StudentID
}

// New constructs an empty in-memory student store.
func New() *InMemoryStudentStore {
	return &InMemoryStudentStore{
		students: make(map[id.StudentID]*models.Student),
		byNo:     make(map[string]id.StudentID),
	}
}

// Create inserts a student; the campus student number must be unique.
func (s *InMemoryStudentStore) Create(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNo[student.StudentNo]; exists {
		return fmt.Errorf("student number already registered: %w", sentinel.ErrConflict)
	}
	cp := *student
	s.students[student.ID] = &cp
	s.byNo[student.StudentNo] = student.ID
	return nil
}

func (s *InMemoryStudentStore) FindByID(_ context.Context, studentID id.StudentID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.students[studentID]
	if !ok {
		return nil, fmt.Errorf("student not found: %w", sentinel.ErrNotFound)
	}
	cp := *student
	return &cp, nil
}

// FindByIDs batch-loads students; unknown IDs are silently absent from the
// result, mirroring the postgres ANY($1) query.
func (s *InMemoryStudentStore) FindByIDs(_ context.Context, ids []id.StudentID) (map[id.StudentID]*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.StudentID]*models.Student, len(ids))
	for _, studentID := range ids {
		if student, ok := s.students[studentID]; ok {
			cp := *student
			out[studentID] = &cp
		}
	}
	return out, nil
}

func (s *InMemoryStudentStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students), nil
}
