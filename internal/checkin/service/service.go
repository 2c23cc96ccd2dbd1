// Package service implements the check-in protocol: artifact verification,
// the single compare-and-set transition to checked_in, and the append-only
// record of every attempt.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"turnstile/internal/checkin/metrics"
	"turnstile/internal/checkin/models"
	"turnstile/internal/pass"
	regModels "turnstile/internal/registration/models"
	rosterModels "turnstile/internal/roster/models"
	"turnstile/pkg/attrs"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/platform/tx"
	"turnstile/pkg/requestcontext"
)

var tracer = otel.Tracer("turnstile/checkin")

// Ledger is the registration store surface the protocol needs. MarkCheckedIn
// is the CAS primitive; it returns the current row even when the transition
// loses, so a duplicate scan can report the original check-in time.
type Ledger interface {
	FindByID(ctx context.Context, regID id.RegistrationID) (*regModels.Registration, error)
	MarkCheckedIn(ctx context.Context, regID id.RegistrationID, at time.Time, deviceID id.DeviceID) (*regModels.Registration, error)
}

// ScanLog is the append-only record of every verification attempt.
type ScanLog interface {
	Append(ctx context.Context, record models.CheckInRecord) error
}

// Roster resolves student and event identity for scan confirmation.
type Roster interface {
	GetStudent(ctx context.Context, studentID id.StudentID) (*rosterModels.Student, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*rosterModels.Event, error)
}

// Feed receives accepted scans for the staff dashboard. Pushes are best
// effort; a failed push never fails the scan.
type Feed interface {
	Push(ctx context.Context, entry models.FeedEntry) error
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the check-in protocol.
type Service struct {
	ledger         Ledger
	scanLog        ScanLog
	roster         Roster
	runner         tx.Runner
	feed           Feed
	grace          time.Duration
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

// WithFeed attaches the recent-scans feed.
func WithFeed(feed Feed) Option {
	return func(s *Service) { s.feed = feed }
}

// WithGracePeriod extends the check-in window past an event's end time.
func WithGracePeriod(grace time.Duration) Option {
	return func(s *Service) { s.grace = grace }
}

// New constructs a check-in Service.
func New(ledger Ledger, scanLog ScanLog, roster Roster, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		scanLog: scanLog,
		roster:  roster,
		runner:  runner,
		grace:   2 * time.Hour,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptCheckIn verifies a scanned artifact and, when it names a live
// registration inside the event's window, performs the one issued to
// checked_in transition. Every attempt appends exactly one record whatever
// its outcome; only the accepted append is atomic with the transition. Any
// store failure fails closed with CodeUnavailable, never an optimistic
// acceptance.
func (s *Service) AttemptCheckIn(ctx context.Context, artifact string) (*models.ScanResult, error) {
	ctx, span := tracer.Start(ctx, "checkin.AttemptCheckIn")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveScanDuration(time.Since(start)) }()

	deviceID := requestcontext.DeviceID(ctx)
	now := requestcontext.Now(ctx)

	regID, verificationValue, err := pass.Decode(artifact)
	if err != nil {
		return s.reject(ctx, span, id.RegistrationID{}, id.OutcomeInvalid, models.ReasonMalformedArtifact, deviceID, now, identity{})
	}
	span.SetAttributes(attribute.String("registration_id", regID.String()))

	reg, err := s.ledger.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The ID never resolved, so the record carries no registration.
			return s.reject(ctx, span, id.RegistrationID{}, id.OutcomeInvalid, models.ReasonUnknownRegistration, deviceID, now, identity{})
		}
		return nil, s.failClosed(ctx, span, "ledger lookup failed", err)
	}

	if !pass.Verify(regID, reg.Secret, verificationValue) {
		return s.reject(ctx, span, regID, id.OutcomeInvalid, models.ReasonVerificationFailed, deviceID, now, identity{})
	}

	if reg.Status == regModels.StatusVoid {
		return s.reject(ctx, span, regID, id.OutcomeInvalid, models.ReasonRegistrationVoided, deviceID, now, identity{})
	}

	event, err := s.roster.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, s.failClosed(ctx, span, "event lookup failed", err)
	}
	student, err := s.roster.GetStudent(ctx, reg.StudentID)
	if err != nil {
		return nil, s.failClosed(ctx, span, "student lookup failed", err)
	}

	if event.CheckInWindowClosed(now, s.grace) {
		return s.reject(ctx, span, regID, id.OutcomeExpired, models.ReasonWindowClosed, deviceID, now, identity{student, event})
	}

	// The transition and its record commit together; per-key serialization
	// covers the memory stores, a real transaction covers postgres.
	var (
		outcome     id.ScanOutcome
		reason      string
		checkedInAt time.Time
	)
	txCtx := tx.WithShardKey(ctx, regID.String())
	err = s.runner.RunInTx(txCtx, func(ctx context.Context) error {
		current, casErr := s.ledger.MarkCheckedIn(ctx, regID, now, deviceID)
		switch {
		case casErr == nil:
			outcome, reason, checkedInAt = id.OutcomeAccepted, "", now
		case errors.Is(casErr, sentinel.ErrAlreadyUsed):
			outcome, reason = id.OutcomeDuplicate, models.ReasonAlreadyCheckedIn
			if current != nil && current.CheckedInAt != nil {
				checkedInAt = *current.CheckedInAt
			}
		case errors.Is(casErr, sentinel.ErrInvalidState):
			outcome, reason = id.OutcomeInvalid, models.ReasonRegistrationVoided
		case errors.Is(casErr, sentinel.ErrNotFound):
			outcome, reason = id.OutcomeInvalid, models.ReasonUnknownRegistration
		default:
			return casErr
		}
		return s.scanLog.Append(ctx, models.CheckInRecord{
			ID:             id.RecordID(uuid.New()),
			RegistrationID: regID,
			Outcome:        outcome,
			Reason:         reason,
			DeviceID:       deviceID,
			At:             now,
		})
	})
	if err != nil {
		return nil, s.failClosed(ctx, span, "check-in transition failed", err)
	}

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	s.metrics.IncrementScan(outcome.String(), reason)

	result := &models.ScanResult{
		Outcome:        outcome,
		Reason:         reason,
		RegistrationID: regID,
		StudentName:    student.Name,
		EventTitle:     event.Title,
	}
	if !checkedInAt.IsZero() {
		t := checkedInAt
		result.CheckedInAt = &t
	}

	switch outcome {
	case id.OutcomeAccepted:
		s.logAudit(ctx, audit.EventScanAccepted, regID.String(),
			"event_id", event.ID.String(),
			"device_id", deviceID.String(),
		)
		s.pushFeed(ctx, models.FeedEntry{
			RegistrationID: regID.String(),
			StudentName:    student.Name,
			EventTitle:     event.Title,
			DeviceID:       deviceID.String(),
			CheckedInAt:    now,
		})
	case id.OutcomeDuplicate:
		s.logAudit(ctx, audit.EventScanDuplicate, regID.String(),
			"device_id", deviceID.String(),
		)
	default:
		s.logAudit(ctx, audit.EventScanRejected, regID.String(),
			"reason", reason,
			"device_id", deviceID.String(),
		)
	}
	return result, nil
}

// ListAttempts returns the audit trail for one registration, in append order.
func (s *Service) ListAttempts(ctx context.Context, regID id.RegistrationID) ([]models.CheckInRecord, error) {
	type lister interface {
		ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]models.CheckInRecord, error)
	}
	log, ok := s.scanLog.(lister)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "scan log does not support listing")
	}
	records, err := log.ListByRegistration(ctx, regID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan log unavailable")
	}
	return records, nil
}

type identity struct {
	student *rosterModels.Student
	event   *rosterModels.Event
}

// reject appends the record for a non-accepted attempt and builds its result.
// The append failing fails the whole attempt; an unrecorded rejection would
// leave a hole in the audit trail.
func (s *Service) reject(ctx context.Context, span trace.Span, regID id.RegistrationID, outcome id.ScanOutcome, reason string, deviceID id.DeviceID, at time.Time, who identity) (*models.ScanResult, error) {
	record := models.CheckInRecord{
		ID:             id.RecordID(uuid.New()),
		RegistrationID: regID,
		Outcome:        outcome,
		Reason:         reason,
		DeviceID:       deviceID,
		At:             at,
	}
	if err := s.scanLog.Append(ctx, record); err != nil {
		return nil, s.failClosed(ctx, span, "scan record append failed", err)
	}

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	s.metrics.IncrementScan(outcome.String(), reason)

	auditEvent := audit.EventScanRejected
	if outcome == id.OutcomeExpired {
		auditEvent = audit.EventScanExpired
	}
	s.logAudit(ctx, auditEvent, regID.String(),
		"reason", reason,
		"device_id", deviceID.String(),
	)

	result := &models.ScanResult{
		Outcome:        outcome,
		Reason:         reason,
		RegistrationID: regID,
	}
	if who.student != nil {
		result.StudentName = who.student.Name
	}
	if who.event != nil {
		result.EventTitle = who.event.Title
	}
	return result, nil
}

func (s *Service) failClosed(ctx context.Context, span trace.Span, msg string, err error) error {
	span.RecordError(err)
	s.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "check-in unavailable")
}

func (s *Service) pushFeed(ctx context.Context, entry models.FeedEntry) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Push(ctx, entry); err != nil {
		s.metrics.IncrementFeedFailure()
		s.logger.WarnContext(ctx, "recent-scans feed push failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
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
		DeviceID:  requestcontext.DeviceID(ctx).String(),
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestID,
	})
}
