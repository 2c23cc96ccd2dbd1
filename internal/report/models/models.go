// Package models holds the attendance reporting types. A report is a pure
// function of the ledger: no wall-clock, no randomness, so repeated builds
// over an unchanged ledger are byte-identical in every encoding.
package models

import (
	"time"

	id "turnstile/pkg/domain"
)

// Row is one registration in a report, joined with student identity and the
// device that admitted it.
type Row struct {
	RegistrationID id.RegistrationID
	StudentName    string
	StudentNo      string
	EventTitle     string
	Status         string
	RegisteredAt   time.Time
	CheckedInAt    *time.Time
	DeviceName     string
}

// Report is the attendance view for one event, rows ordered by
// (RegisteredAt, RegistrationID).
type Report struct {
	EventID    id.EventID
	EventTitle string
	Venue      string
	StartsAt   time.Time
	Rows       []Row
}

// AttendanceLog is the all-events view of checked-in rows, ordered by
// (CheckedInAt DESC, RegistrationID).
type AttendanceLog struct {
	Rows []Row
}

// Options filters a report build.
type Options struct {
	// AttendedOnly keeps only checked_in rows. Filtering happens during the
	// build; encoders never re-filter.
	AttendedOnly bool
}

// DashboardCounts are the admin dashboard totals.
type DashboardCounts struct {
	Events        int `json:"events"`
	Students      int `json:"students"`
	Registrations int `json:"registrations"`
	CheckedIn     int `json:"checked_in"`
}
