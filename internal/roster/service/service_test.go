package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/roster/service"
	eventstore "turnstile/internal/roster/store/event"
	studentstore "turnstile/internal/roster/store/student"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/audit/publisher"
	auditMemory "turnstile/pkg/platform/audit/store/memory"
)

type RosterServiceSuite struct {
	suite.Suite
	auditStore *auditMemory.InMemoryStore
	svc        *service.Service
}

func TestRosterServiceSuite(t *testing.T) {
	suite.Run(t, new(RosterServiceSuite))
}

func (s *RosterServiceSuite) SetupTest() {
	s.auditStore = auditMemory.NewInMemoryStore()
	s.svc = service.New(studentstore.New(), eventstore.New(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
}

func (s *RosterServiceSuite) TestCreateAndGetStudent() {
	ctx := context.Background()

	student, err := s.svc.CreateStudent(ctx, "  Dana Osei  ", "S-1001", "dana@example.edu")
	s.Require().NoError(err)
	s.Equal("Dana Osei", student.Name, "name should be trimmed")
	s.False(student.ID.IsZero())

	found, err := s.svc.GetStudent(ctx, student.ID)
	s.Require().NoError(err)
	s.Equal(student.StudentNo, found.StudentNo)

	events, err := s.auditStore.ListBySubject(ctx, student.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventStudentCreated), events[0].Action)
}

func (s *RosterServiceSuite) TestCreateStudentValidation() {
	ctx := context.Background()

	_, err := s.svc.CreateStudent(ctx, "", "S-1002", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.CreateStudent(ctx, "No Number", "   ", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RosterServiceSuite) TestDuplicateStudentNoConflicts() {
	ctx := context.Background()

	_, err := s.svc.CreateStudent(ctx, "Dana Osei", "S-1001", "")
	s.Require().NoError(err)

	_, err = s.svc.CreateStudent(ctx, "Someone Else", "S-1001", "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RosterServiceSuite) TestCreateAndGetEvent() {
	ctx := context.Background()
	now := time.Now().UTC()

	event, err := s.svc.CreateEvent(ctx, "Orientation", "Main Hall", now.Add(time.Hour), now.Add(3*time.Hour), 200)
	s.Require().NoError(err)
	s.Equal("Orientation", event.Title)
	s.Equal(200, event.Capacity)

	found, err := s.svc.GetEvent(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.Title, found.Title)

	events, err := s.auditStore.ListBySubject(ctx, event.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventEventCreated), events[0].Action)
}

func (s *RosterServiceSuite) TestCreateEventValidation() {
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.svc.CreateEvent(ctx, "", "Main Hall", now, now.Add(time.Hour), 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.CreateEvent(ctx, "Backwards", "Main Hall", now.Add(time.Hour), now, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.CreateEvent(ctx, "Negative", "Main Hall", now, now.Add(time.Hour), -1)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RosterServiceSuite) TestGetMissing() {
	ctx := context.Background()

	_, err := s.svc.GetStudent(ctx, id.StudentID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.GetEvent(ctx, id.EventID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
