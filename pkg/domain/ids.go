// Package domain holds shared domain primitives: typed identifiers and the
// scan outcome enum. Typed IDs make cross-entity mixups a compile error
// instead of a data corruption bug.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "turnstile/pkg/domain-errors"
)

// Typed identifiers. Construct from uuid.New() internally; use the ParseX
// functions at trust boundaries so invalid input is rejected before it
// reaches a store.
type (
	// RegistrationID identifies a (student, event) registration. Never reused,
	// even after the registration is voided.
	RegistrationID uuid.UUID

	// StudentID identifies a student in the roster.
	StudentID uuid.UUID

	// EventID identifies an event in the roster.
	EventID uuid.UUID

	// DeviceID identifies an enrolled scanning device.
	DeviceID uuid.UUID

	// RecordID identifies an append-only check-in record.
	RecordID uuid.UUID
)

// parseUUID enforces the shared invariant: valid, non-empty, non-nil UUID.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s cannot be empty", label))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s format", label))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s cannot be nil", label))
	}
	return u, nil
}

// ParseRegistrationID constructs a RegistrationID from external input.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(u), nil
}

// ParseStudentID constructs a StudentID from external input.
func ParseStudentID(s string) (StudentID, error) {
	u, err := parseUUID(s, "student id")
	if err != nil {
		return StudentID{}, err
	}
	return StudentID(u), nil
}

// ParseEventID constructs an EventID from external input.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

// ParseDeviceID constructs a DeviceID from external input.
func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s, "device id")
	if err != nil {
		return DeviceID{}, err
	}
	return DeviceID(u), nil
}

// ParseRecordID constructs a RecordID from external input.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(u), nil
}

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id StudentID) String() string      { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id DeviceID) String() string       { return uuid.UUID(id).String() }
func (id RecordID) String() string       { return uuid.UUID(id).String() }

func (id RegistrationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
