package handler

import (
	"time"

	dErrors "turnstile/pkg/domain-errors"
)

// CreateStudentRequest is the POST /students body.
type CreateStudentRequest struct {
	Name      string `json:"name"`
	StudentNo string `json:"student_no"`
	Email     string `json:"email"`
}

func (r *CreateStudentRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.StudentNo == "" {
		return dErrors.New(dErrors.CodeValidation, "student_no is required")
	}
	return nil
}

// CreateEventRequest is the POST /events body.
type CreateEventRequest struct {
	Title    string    `json:"title"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Capacity int       `json:"capacity"`
}

func (r *CreateEventRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "starts_at and ends_at are required")
	}
	if !r.EndsAt.After(r.StartsAt) {
		return dErrors.New(dErrors.CodeValidation, "ends_at must be after starts_at")
	}
	if r.Capacity < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacity cannot be negative")
	}
	return nil
}
