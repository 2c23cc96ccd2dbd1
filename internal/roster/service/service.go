// Package service manages the roster catalog consumed by issuance, scanning
// and reporting.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/roster/models"
	"turnstile/pkg/attrs"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// StudentStore is the persistence the service needs for students.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, studentID id.StudentID) (*models.Student, error)
	Count(ctx context.Context) (int, error)
}

// EventStore is the persistence the service needs for events.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Count(ctx context.Context) (int, error)
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service exposes roster operations.
type Service struct {
	students       StudentStore
	events         EventStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// New constructs a roster Service.
func New(students StudentStore, events EventStore, opts ...Option) *Service {
	s := &Service{students: students, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateStudent registers a student in the roster.
func (s *Service) CreateStudent(ctx context.Context, name, studentNo, email string) (*models.Student, error) {
	student, err := models.NewStudent(id.StudentID(uuid.New()), name, studentNo, email, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "student number already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create student")
	}

	s.logAudit(ctx, audit.EventStudentCreated, student.ID.String(),
		"student_no", student.StudentNo)
	return student, nil
}

// GetStudent returns a roster student by ID.
func (s *Service) GetStudent(ctx context.Context, studentID id.StudentID) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	return student, nil
}

// CreateEvent schedules an event.
func (s *Service) CreateEvent(ctx context.Context, title, venue string, startsAt, endsAt time.Time, capacity int) (*models.Event, error) {
	event, err := models.NewEvent(id.EventID(uuid.New()), title, venue, startsAt, endsAt, capacity, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}

	s.logAudit(ctx, audit.EventEventCreated, event.ID.String(),
		"title", event.Title)
	return event, nil
}

// GetEvent returns an event by ID.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return event, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject string, logAttrs ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append([]any{
		"request_id", requestID,
		"log_type", "audit",
		"action", string(event),
		"subject", subject,
	}, logAttrs...)
	s.logger.InfoContext(ctx, "audit event", args...)

	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    string(event),
		Reason:    attrs.ExtractString(logAttrs, "reason"),
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestID,
	})
}
