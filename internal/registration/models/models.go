// Package models holds the registration ledger entities. A Registration is
// the authoritative record of one (student, event) pair; its status is the
// single source of truth for whether a pass can still check in.
package models

import (
	"time"

	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
)

// RegistrationStatus is the ledger state of a registration.
// Transitions: issued -> checked_in (terminal for scans), issued -> void
// (terminal), checked_in -> void only via the privileged override path.
type RegistrationStatus string

const (
	StatusIssued    RegistrationStatus = "issued"
	StatusCheckedIn RegistrationStatus = "checked_in"
	StatusVoid      RegistrationStatus = "void"
)

// Registration records one student's claim on one event.
type Registration struct {
	ID        id.RegistrationID
	StudentID id.StudentID
	EventID   id.EventID
	// Secret is the per-registration key the pass digest is derived from.
	// It never leaves the ledger; only the derived digest is printed.
	Secret    string
	Status    RegistrationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	// CheckedInAt is set exactly once, by the winning scan. It survives an
	// administrative override-void so the attendance fact is not erased.
	CheckedInAt *time.Time
	CheckedInBy id.DeviceID
}

// NewRegistration validates invariants and constructs an issued Registration.
func NewRegistration(regID id.RegistrationID, studentID id.StudentID, eventID id.EventID, secret string, now time.Time) (*Registration, error) {
	if regID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id cannot be zero")
	}
	if studentID.IsZero() || eventID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration requires student and event")
	}
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration secret cannot be empty")
	}
	return &Registration{
		ID:        regID,
		StudentID: studentID,
		EventID:   eventID,
		Secret:    secret,
		Status:    StatusIssued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Pass is the rendered scannable artifact plus its printable sheet.
// Derived from the registration, never persisted.
type Pass struct {
	RegistrationID id.RegistrationID
	Artifact       string
	Sheet          string
}
