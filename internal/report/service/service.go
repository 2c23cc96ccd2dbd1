// Package service builds the attendance views: per-event reports, the
// all-events attendance log, dashboard counts and the recent-scans feed.
// Builds read the ledger once and join in memory; the result is deterministic
// for an unchanged ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	checkinModels "turnstile/internal/checkin/models"
	regModels "turnstile/internal/registration/models"
	"turnstile/internal/report/encoder"
	"turnstile/internal/report/metrics"
	"turnstile/internal/report/models"
	rosterModels "turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

var tracer = otel.Tracer("turnstile/report")

// timeLayout renders report timestamps; always UTC so output never depends
// on server locale.
const timeLayout = "2006-01-02 15:04:05"

// DefaultRecentScans caps the recent-scans panel.
const DefaultRecentScans = 10

// Ledger is the registration read surface reports are built from.
type Ledger interface {
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*regModels.Registration, error)
	ListCheckedIn(ctx context.Context) ([]*regModels.Registration, error)
	Count(ctx context.Context) (int, error)
	CountCheckedIn(ctx context.Context) (int, error)
}

// StudentDirectory batch-resolves student identity.
type StudentDirectory interface {
	FindByIDs(ctx context.Context, ids []id.StudentID) (map[id.StudentID]*rosterModels.Student, error)
	Count(ctx context.Context) (int, error)
}

// EventDirectory resolves events.
type EventDirectory interface {
	FindByID(ctx context.Context, eventID id.EventID) (*rosterModels.Event, error)
	Count(ctx context.Context) (int, error)
}

// ScanLog supplies the device column: the latest accepted record per
// registration.
type ScanLog interface {
	LatestAcceptedByRegistrations(ctx context.Context, regIDs []id.RegistrationID) (map[id.RegistrationID]checkinModels.CheckInRecord, error)
}

// DeviceNames resolves device display names; absent devices fall back to the
// raw ID.
type DeviceNames interface {
	NamesByID(ctx context.Context, ids []id.DeviceID) (map[id.DeviceID]string, error)
}

// Feed serves the recent-scans panel.
type Feed interface {
	Recent(ctx context.Context, limit int) ([]checkinModels.FeedEntry, error)
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service builds reports.
type Service struct {
	ledger         Ledger
	students       StudentDirectory
	events         EventDirectory
	scanLog        ScanLog
	devices        DeviceNames
	feed           Feed
	registry       *encoder.Registry
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

// WithDeviceNames attaches a device name resolver.
func WithDeviceNames(devices DeviceNames) Option {
	return func(s *Service) { s.devices = devices }
}

// WithFeed attaches the recent-scans feed.
func WithFeed(feed Feed) Option {
	return func(s *Service) { s.feed = feed }
}

// New constructs a report Service.
func New(ledger Ledger, students StudentDirectory, events EventDirectory, scanLog ScanLog, opts ...Option) *Service {
	s := &Service{
		ledger:   ledger,
		students: students,
		events:   events,
		scanLog:  scanLog,
		registry: encoder.NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Formats lists the available export formats.
func (s *Service) Formats() []string {
	return s.registry.Formats()
}

// BuildReport assembles the attendance report for one event. Rows come out
// in the ledger's issuance order (RegisteredAt, RegistrationID).
func (s *Service) BuildReport(ctx context.Context, eventID id.EventID, opts models.Options) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "report.BuildReport")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID.String()))

	start := time.Now()
	defer func() { s.metrics.ObserveBuildDuration(time.Since(start)) }()

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	regs, err := s.ledger.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	if opts.AttendedOnly {
		attended := regs[:0]
		for _, reg := range regs {
			if reg.CheckedInAt != nil {
				attended = append(attended, reg)
			}
		}
		regs = attended
	}

	rows, err := s.buildRows(ctx, regs, map[id.EventID]string{event.ID: event.Title})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementBuild("event")
	s.logAudit(ctx, audit.EventReportBuilt, eventID.String(),
		"view", "event",
		"rows", len(rows),
	)
	return &models.Report{
		EventID:    event.ID,
		EventTitle: event.Title,
		Venue:      event.Venue,
		StartsAt:   event.StartsAt,
		Rows:       rows,
	}, nil
}

// BuildAttendanceLog assembles the all-events log of checked-in rows, most
// recent check-in first.
func (s *Service) BuildAttendanceLog(ctx context.Context) (*models.AttendanceLog, error) {
	ctx, span := tracer.Start(ctx, "report.BuildAttendanceLog")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveBuildDuration(time.Since(start)) }()

	regs, err := s.ledger.ListCheckedIn(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list check-ins")
	}

	// Event titles are resolved per distinct event, not per row.
	titles := make(map[id.EventID]string)
	for _, reg := range regs {
		if _, ok := titles[reg.EventID]; ok {
			continue
		}
		event, err := s.events.FindByID(ctx, reg.EventID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		titles[reg.EventID] = event.Title
	}

	rows, err := s.buildRows(ctx, regs, titles)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementBuild("attendance")
	s.logAudit(ctx, audit.EventReportBuilt, "attendance",
		"view", "attendance",
		"rows", len(rows),
	)
	return &models.AttendanceLog{Rows: rows}, nil
}

// DashboardCounts returns the admin dashboard totals.
func (s *Service) DashboardCounts(ctx context.Context) (*models.DashboardCounts, error) {
	events, err := s.events.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count events")
	}
	students, err := s.students.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count students")
	}
	registrations, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}
	checkedIn, err := s.ledger.CountCheckedIn(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count check-ins")
	}
	return &models.DashboardCounts{
		Events:        events,
		Students:      students,
		Registrations: registrations,
		CheckedIn:     checkedIn,
	}, nil
}

// RecentScans returns the latest accepted check-ins from the feed.
func (s *Service) RecentScans(ctx context.Context, limit int) ([]checkinModels.FeedEntry, error) {
	if s.feed == nil {
		return []checkinModels.FeedEntry{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = DefaultRecentScans
	}
	entries, err := s.feed.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "recent-scans feed unavailable")
	}
	return entries, nil
}

// Render encodes a document into one format.
func (s *Service) Render(format string, doc encoder.Document) ([]byte, error) {
	rendered, err := s.registry.Render(format, doc)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRender(format)
	return rendered, nil
}

// RenderAll encodes a document into several formats concurrently.
func (s *Service) RenderAll(doc encoder.Document, formats []string) (map[string][]byte, error) {
	rendered, err := s.registry.RenderAll(doc, formats)
	if err != nil {
		return nil, err
	}
	for format := range rendered {
		s.metrics.IncrementRender(format)
	}
	return rendered, nil
}

// buildRows joins registrations with student identity and the admitting
// device. Input order is preserved.
func (s *Service) buildRows(ctx context.Context, regs []*regModels.Registration, titles map[id.EventID]string) ([]models.Row, error) {
	studentIDs := make([]id.StudentID, 0, len(regs))
	checkedInIDs := make([]id.RegistrationID, 0, len(regs))
	for _, reg := range regs {
		studentIDs = append(studentIDs, reg.StudentID)
		if reg.CheckedInAt != nil {
			checkedInIDs = append(checkedInIDs, reg.ID)
		}
	}

	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load students")
	}

	latest := map[id.RegistrationID]checkinModels.CheckInRecord{}
	if len(checkedInIDs) > 0 {
		latest, err = s.scanLog.LatestAcceptedByRegistrations(ctx, checkedInIDs)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scan records")
		}
	}

	deviceNames := map[id.DeviceID]string{}
	if s.devices != nil && len(latest) > 0 {
		deviceIDs := make([]id.DeviceID, 0, len(latest))
		seen := make(map[id.DeviceID]bool, len(latest))
		for _, record := range latest {
			if !record.DeviceID.IsZero() && !seen[record.DeviceID] {
				seen[record.DeviceID] = true
				deviceIDs = append(deviceIDs, record.DeviceID)
			}
		}
		deviceNames, err = s.devices.NamesByID(ctx, deviceIDs)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device names")
		}
	}

	rows := make([]models.Row, 0, len(regs))
	for _, reg := range regs {
		row := models.Row{
			RegistrationID: reg.ID,
			EventTitle:     titles[reg.EventID],
			Status:         string(reg.Status),
			RegisteredAt:   reg.CreatedAt,
			CheckedInAt:    reg.CheckedInAt,
		}
		if student, ok := students[reg.StudentID]; ok {
			row.StudentName = student.Name
			row.StudentNo = student.StudentNo
		}
		if record, ok := latest[reg.ID]; ok {
			if name, ok := deviceNames[record.DeviceID]; ok {
				row.DeviceName = name
			} else if !record.DeviceID.IsZero() {
				row.DeviceName = record.DeviceID.String()
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// reportColumns is the fixed column set of the per-event report.
var reportColumns = []string{"Student", "Student No", "Status", "Registered At", "Checked In At", "Device"}

// attendanceColumns adds the event column for the all-events log.
var attendanceColumns = []string{"Student", "Student No", "Event", "Checked In At", "Device"}

// ReportDocument converts a report into the canonical row stream.
func ReportDocument(report *models.Report) encoder.Document {
	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, []string{
			row.StudentName,
			row.StudentNo,
			row.Status,
			formatTime(&row.RegisteredAt),
			formatTime(row.CheckedInAt),
			row.DeviceName,
		})
	}
	return encoder.Document{
		Title:   "Attendance Report: " + report.EventTitle,
		Columns: reportColumns,
		Rows:    rows,
	}
}

// AttendanceDocument converts the all-events log into the canonical row
// stream.
func AttendanceDocument(log *models.AttendanceLog) encoder.Document {
	rows := make([][]string, 0, len(log.Rows))
	for _, row := range log.Rows {
		rows = append(rows, []string{
			row.StudentName,
			row.StudentNo,
			row.EventTitle,
			formatTime(row.CheckedInAt),
			row.DeviceName,
		})
	}
	return encoder.Document{
		Title:   "Attendance Log",
		Columns: attendanceColumns,
		Rows:    rows,
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
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
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestID,
	})
}
