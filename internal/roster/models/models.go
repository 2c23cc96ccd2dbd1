// Package models holds the roster entities: the students and events that
// registrations refer to. The portal's browsing and account features live
// elsewhere; this catalog carries only what issuance and pass rendering need.
package models

import (
	"strings"
	"time"

	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
)

// Student is a minimal roster entry for a campus member.
type Student struct {
	ID   id.StudentID
	Name string
	// StudentNo is the external campus identifier printed on the pass sheet.
	StudentNo string
	Email     string
	CreatedAt time.Time
}

// NewStudent validates invariants and constructs a Student.
func NewStudent(studentID id.StudentID, name, studentNo, email string, now time.Time) (*Student, error) {
	name = strings.TrimSpace(name)
	studentNo = strings.TrimSpace(studentNo)
	if studentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student id cannot be zero")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student name cannot be empty")
	}
	if studentNo == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student number cannot be empty")
	}
	return &Student{
		ID:        studentID,
		Name:      name,
		StudentNo: studentNo,
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
	}, nil
}

// Event is a scheduled campus event that students register for.
type Event struct {
	ID       id.EventID
	Title    string
	Venue    string
	StartsAt time.Time
	EndsAt   time.Time
	// Capacity bounds live registrations; zero means unbounded.
	Capacity  int
	CreatedAt time.Time
}

// NewEvent validates invariants and constructs an Event.
func NewEvent(eventID id.EventID, title, venue string, startsAt, endsAt time.Time, capacity int, now time.Time) (*Event, error) {
	title = strings.TrimSpace(title)
	if eventID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event id cannot be zero")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title cannot be empty")
	}
	if !endsAt.After(startsAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event must end after it starts")
	}
	if capacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event capacity cannot be negative")
	}
	return &Event{
		ID:        eventID,
		Title:     title,
		Venue:     strings.TrimSpace(venue),
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Capacity:  capacity,
		CreatedAt: now,
	}, nil
}

// CheckInWindowClosed reports whether scans for this event should be
// rejected as expired, given a grace period past the scheduled end.
func (e *Event) CheckInWindowClosed(now time.Time, grace time.Duration) bool {
	return now.After(e.EndsAt.Add(grace))
}
