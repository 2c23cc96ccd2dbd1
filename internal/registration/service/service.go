// Package service owns the registration ledger: issuance, voiding and pass
// rendering. The checked-in transition itself belongs to the check-in
// protocol, which calls the store's compare-and-set directly.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/pass"
	"turnstile/internal/registration/metrics"
	"turnstile/internal/registration/models"
	rosterModels "turnstile/internal/roster/models"
	"turnstile/pkg/attrs"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// RegistrationStore is the ledger persistence the service needs.
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	SetVoid(ctx context.Context, regID id.RegistrationID, at time.Time) error
	ForceVoid(ctx context.Context, regID id.RegistrationID, at time.Time) error
	CountLiveByEvent(ctx context.Context, eventID id.EventID) (int, error)
}

// Roster resolves the student and event a registration refers to.
type Roster interface {
	GetStudent(ctx context.Context, studentID id.StudentID) (*rosterModels.Student, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*rosterModels.Event, error)
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates ledger operations.
type Service struct {
	store          RegistrationStore
	roster         Roster
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a registration Service.
func New(store RegistrationStore, roster Roster, opts ...Option) *Service {
	s := &Service{store: store, roster: roster, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a registration for a (student, event) pair. The pair
// uniqueness invariant is enforced by the store constraint, not a pre-check;
// a duplicate surfaces as CodeConflict and leaves the ledger unchanged.
func (s *Service) Issue(ctx context.Context, studentID id.StudentID, eventID id.EventID) (*models.Registration, error) {
	if _, err := s.roster.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	event, err := s.roster.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// Capacity is advisory: concurrent issuance at the boundary may admit one
	// extra registration, which the portal tolerates. Pair uniqueness is the
	// hard invariant and lives in the constraint below.
	if event.Capacity > 0 {
		live, err := s.store.CountLiveByEvent(ctx, eventID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
		}
		if live >= event.Capacity {
			return nil, dErrors.New(dErrors.CodeConflict, "event is full")
		}
	}

	secret, err := pass.NewSecret()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate registration secret")
	}

	reg, err := models.NewRegistration(id.RegistrationID(uuid.New()), studentID, eventID, secret, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementIssueConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "registration already exists for this student and event")
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	s.metrics.IncrementIssued()
	s.logAudit(ctx, audit.EventRegistrationIssued, reg.ID.String(),
		"student_id", studentID.String(),
		"event_id", eventID.String(),
	)
	return reg, nil
}

// Get returns a registration by ID.
func (s *Service) Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

// Void terminates an issued registration. A checked-in registration cannot
// be voided here; that requires the privileged OverrideVoid path.
func (s *Service) Void(ctx context.Context, regID id.RegistrationID) error {
	if err := s.store.SetVoid(ctx, regID, requestcontext.Now(ctx)); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return dErrors.New(dErrors.CodeConflict, "registration is already checked in")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to void registration")
		}
	}

	s.metrics.IncrementVoided("void")
	s.logAudit(ctx, audit.EventRegistrationVoided, regID.String())
	return nil
}

// OverrideVoid voids a registration regardless of state. The acting
// administrator is recorded; the original check-in time survives in the
// scan log, so the attendance fact is auditable after the override.
func (s *Service) OverrideVoid(ctx context.Context, regID id.RegistrationID) error {
	if err := s.store.ForceVoid(ctx, regID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to override registration")
	}

	s.metrics.IncrementVoided("override")
	s.logAudit(ctx, audit.EventVoidOverridden, regID.String(),
		"reason", "administrative override")
	return nil
}

// Pass re-renders the scannable artifact and printable sheet for a
// registration. Encoding is deterministic, so a lost pass regenerates
// byte-identically.
func (s *Service) Pass(ctx context.Context, regID id.RegistrationID) (*models.Pass, error) {
	reg, err := s.Get(ctx, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status == models.StatusVoid {
		return nil, dErrors.New(dErrors.CodeConflict, "registration is voided")
	}

	student, err := s.roster.GetStudent(ctx, reg.StudentID)
	if err != nil {
		return nil, err
	}
	event, err := s.roster.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}

	sheet := pass.Sheet(reg.ID, reg.Secret, pass.SheetData{
		EventTitle:  event.Title,
		StudentName: student.Name,
		StudentNo:   student.StudentNo,
		EventDate:   event.StartsAt.UTC().Format("2006-01-02"),
		EventTime:   event.StartsAt.UTC().Format("15:04"),
		Venue:       event.Venue,
	})

	s.logAudit(ctx, audit.EventPassRendered, reg.ID.String())
	return &models.Pass{
		RegistrationID: reg.ID,
		Artifact:       pass.Encode(reg.ID, reg.Secret),
		Sheet:          sheet,
	}, nil
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
