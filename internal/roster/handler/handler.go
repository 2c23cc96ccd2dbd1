// Package handler exposes the roster's admin-facing HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// Service defines the roster operations the handler needs.
type Service interface {
	CreateStudent(ctx context.Context, name, studentNo, email string) (*models.Student, error)
	GetStudent(ctx context.Context, studentID id.StudentID) (*models.Student, error)
	CreateEvent(ctx context.Context, title, venue string, startsAt, endsAt time.Time, capacity int) (*models.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

// Handler handles roster endpoints.
type Handler struct {
	roster Service
	logger *slog.Logger
}

// New creates a roster Handler.
func New(roster Service, logger *slog.Logger) *Handler {
	return &Handler{roster: roster, logger: logger}
}

// Register mounts the roster routes. Admin auth is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/students", h.handleCreateStudent)
	r.Get("/students/{id}", h.handleGetStudent)
	r.Post("/events", h.handleCreateEvent)
	r.Get("/events/{id}", h.handleGetEvent)
}

type studentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StudentNo string    `json:"student_no"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type eventResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Venue     string    `json:"venue,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

func toStudentResponse(s *models.Student) studentResponse {
	return studentResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		StudentNo: s.StudentNo,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
	}
}

func toEventResponse(e *models.Event) eventResponse {
	return eventResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		Venue:     e.Venue,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Capacity:  e.Capacity,
		CreatedAt: e.CreatedAt,
	}
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateStudentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	student, err := h.roster.CreateStudent(ctx, req.Name, req.StudentNo, req.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create student",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toStudentResponse(student))
}

func (h *Handler) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studentID, err := id.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	student, err := h.roster.GetStudent(ctx, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStudentResponse(student))
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	event, err := h.roster.CreateEvent(ctx, req.Title, req.Venue, req.StartsAt, req.EndsAt, req.Capacity)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create event",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.roster.GetEvent(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event))
}
