// Package handler exposes the scan endpoint used by check-in devices.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/checkin/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// Service defines the check-in operations the handler needs.
type Service interface {
	AttemptCheckIn(ctx context.Context, artifact string) (*models.ScanResult, error)
}

// Handler handles scan requests.
type Handler struct {
	checkins Service
	logger   *slog.Logger
}

// New creates a check-in Handler.
func New(checkins Service, logger *slog.Logger) *Handler {
	return &Handler{checkins: checkins, logger: logger}
}

// Register mounts the scan route. Device auth and throttling are applied by
// the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/scan", h.handleScan)
}

// ScanRequest is the POST /scan body.
type ScanRequest struct {
	Artifact string `json:"artifact"`
}

func (r *ScanRequest) Validate() error {
	if r.Artifact == "" {
		return dErrors.New(dErrors.CodeValidation, "artifact is required")
	}
	return nil
}

// scanResponse reports the verification outcome to the scanning client.
// Every decided outcome is a 200; errors are reserved for requests the
// service could not decide (bad input, stores unreachable).
type scanResponse struct {
	Outcome        string     `json:"outcome"`
	Reason         string     `json:"reason,omitempty"`
	RegistrationID string     `json:"registration_id,omitempty"`
	StudentName    string     `json:"student_name,omitempty"`
	EventTitle     string     `json:"event_title,omitempty"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.checkins.AttemptCheckIn(ctx, req.Artifact)
	if err != nil {
		h.logger.WarnContext(ctx, "scan attempt failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := scanResponse{
		Outcome:     result.Outcome.String(),
		Reason:      result.Reason,
		StudentName: result.StudentName,
		EventTitle:  result.EventTitle,
		CheckedInAt: result.CheckedInAt,
	}
	if !result.RegistrationID.IsZero() {
		resp.RegistrationID = result.RegistrationID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
