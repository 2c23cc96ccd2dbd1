// Package models holds the check-in protocol types: the append-only scan
// record that forms the audit trail, and the result returned to scanning
// clients.
package models

import (
	"time"

	id "turnstile/pkg/domain"
)

// Reasons attached to non-accepted scan records. Closed set; the audit trail
// is queried by these strings.
const (
	ReasonMalformedArtifact   = "malformed_artifact"
	ReasonUnknownRegistration = "unknown_registration"
	ReasonVerificationFailed  = "verification_failed"
	ReasonRegistrationVoided  = "registration_voided"
	ReasonWindowClosed        = "checkin_window_closed"
	ReasonAlreadyCheckedIn    = "already_checked_in"
)

// CheckInRecord is one immutable audit entry. Every verification attempt,
// whatever its outcome, appends exactly one record; records are never
// mutated or deleted, and survive administrative voids of the registration.
type CheckInRecord struct {
	ID id.RecordID
	// RegistrationID is zero when the artifact never resolved to a
	// registration (malformed or unknown).
	RegistrationID id.RegistrationID
	Outcome        id.ScanOutcome
	Reason         string
	DeviceID       id.DeviceID
	At             time.Time
}

// ScanResult is returned to the scanning client for UI confirmation.
type ScanResult struct {
	Outcome        id.ScanOutcome
	Reason         string
	RegistrationID id.RegistrationID
	StudentName    string
	EventTitle     string
	// CheckedInAt is the winning check-in time: the current scan's for
	// accepted, the original one for duplicate ("already checked in at <t>").
	CheckedInAt *time.Time
}

// FeedEntry is one item on the recent-scans feed shown to staff.
type FeedEntry struct {
	RegistrationID string    `json:"registration_id"`
	StudentName    string    `json:"student_name"`
	EventTitle     string    `json:"event_title"`
	DeviceID       string    `json:"device_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
}
