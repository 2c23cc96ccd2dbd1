// Package handler exposes the registration ledger's admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/registration/models"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	Issue(ctx context.Context, studentID id.StudentID, eventID id.EventID) (*models.Registration, error)
	Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	Void(ctx context.Context, regID id.RegistrationID) error
	OverrideVoid(ctx context.Context, regID id.RegistrationID) error
	Pass(ctx context.Context, regID id.RegistrationID) (*models.Pass, error)
}

// Handler handles registration endpoints.
type Handler struct {
	registrations Service
	logger        *slog.Logger
}

// New creates a registration Handler.
func New(registrations Service, logger *slog.Logger) *Handler {
	return &Handler{registrations: registrations, logger: logger}
}

// Register mounts the registration routes. Admin auth is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations", h.handleIssue)
	r.Get("/registrations/{id}", h.handleGet)
	r.Get("/registrations/{id}/pass", h.handlePass)
	r.Post("/registrations/{id}/void", h.handleVoid)
	r.Post("/registrations/{id}/override-void", h.handleOverrideVoid)
}

// IssueRequest is the POST /registrations body.
type IssueRequest struct {
	StudentID string `json:"student_id"`
	EventID   string `json:"event_id"`

	studentID id.StudentID
	eventID   id.EventID
}

func (r *IssueRequest) Validate() error {
	studentID, err := id.ParseStudentID(r.StudentID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid student_id")
	}
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid event_id")
	}
	r.studentID = studentID
	r.eventID = eventID
	return nil
}

type registrationResponse struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	EventID     string     `json:"event_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

func toRegistrationResponse(reg *models.Registration) registrationResponse {
	return registrationResponse{
		ID:          reg.ID.String(),
		StudentID:   reg.StudentID.String(),
		EventID:     reg.EventID.String(),
		Status:      string(reg.Status),
		CreatedAt:   reg.CreatedAt,
		CheckedInAt: reg.CheckedInAt,
	}
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.registrations.Issue(ctx, req.studentID, req.eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to issue registration",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRegistrationResponse(reg))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reg, err := h.registrations.Get(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRegistrationResponse(reg))
}

type passResponse struct {
	RegistrationID string `json:"registration_id"`
	Artifact       string `json:"artifact"`
	Sheet          string `json:"sheet"`
}

func (h *Handler) handlePass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.registrations.Pass(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, passResponse{
		RegistrationID: p.RegistrationID.String(),
		Artifact:       p.Artifact,
		Sheet:          p.Sheet,
	})
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registrations.Void(ctx, regID); err != nil {
		h.logger.WarnContext(ctx, "failed to void registration",
			"request_id", requestID,
			"registration_id", regID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOverrideVoid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registrations.OverrideVoid(ctx, regID); err != nil {
		h.logger.WarnContext(ctx, "failed to override-void registration",
			"request_id", requestID,
			"registration_id", regID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
