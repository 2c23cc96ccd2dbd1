package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that feed dispute resolution: who was
	// issued what, who scanned what, when, with what result. These require
	// tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics:
	// rejected scans, device revocations, administrative overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the entity the action concerns, usually a registration ID.
	Subject string
	Action  string
	// Outcome is the recorded result where the action has one (scan outcomes,
	// void decisions).
	Outcome string
	Reason  string
	// DeviceID identifies the scanning device for scan events.
	DeviceID string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// ActorID is the administrator who performed the action, for privileged
	// operations like override-void.
	ActorID string
}

// Store persists audit events. The postgres implementation writes to a
// transactional outbox; the relay ships outbox entries to Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// AuditEvent names every action the service audits.
type AuditEvent string

const (
	// Registration lifecycle events
	EventRegistrationIssued AuditEvent = "registration_issued"
	EventRegistrationVoided AuditEvent = "registration_voided"
	EventVoidOverridden     AuditEvent = "void_overridden"
	EventPassRendered       AuditEvent = "pass_rendered"

	// Scan events
	EventScanAccepted  AuditEvent = "scan_accepted"
	EventScanDuplicate AuditEvent = "scan_duplicate"
	EventScanRejected  AuditEvent = "scan_rejected"
	EventScanExpired   AuditEvent = "scan_expired"

	// Device events
	EventDeviceEnrolled      AuditEvent = "device_enrolled"
	EventDeviceAuthenticated AuditEvent = "device_authenticated"
	EventDeviceRevoked       AuditEvent = "device_revoked"

	// Roster events
	EventEventCreated   AuditEvent = "event_created"
	EventStudentCreated AuditEvent = "student_created"

	// Report events
	EventReportBuilt AuditEvent = "report_built"
)

// eventCategories maps each audit event to its category.
// Compliance: attendance facts, long retention required.
// Security: rejected scans, revocations, privileged overrides.
// Operations: routine activity, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationIssued: CategoryCompliance,
	EventRegistrationVoided: CategoryCompliance,
	EventScanAccepted:       CategoryCompliance,
	EventScanDuplicate:      CategoryCompliance,

	EventVoidOverridden: CategorySecurity,
	EventScanRejected:   CategorySecurity,
	EventDeviceEnrolled: CategorySecurity,
	EventDeviceRevoked:  CategorySecurity,

	EventPassRendered:        CategoryOperations,
	EventScanExpired:         CategoryOperations,
	EventDeviceAuthenticated: CategoryOperations,
	EventEventCreated:        CategoryOperations,
	EventStudentCreated:      CategoryOperations,
	EventReportBuilt:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
