// Package handler exposes the device registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/device/models"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// Service defines the device registry operations the handler needs.
type Service interface {
	Enroll(ctx context.Context, name string) (*models.Enrollment, error)
	Authenticate(ctx context.Context, deviceID id.DeviceID, secret string) (string, error)
	Revoke(ctx context.Context, deviceID id.DeviceID) error
	Get(ctx context.Context, deviceID id.DeviceID) (*models.Device, error)
}

// Handler handles device registry endpoints.
type Handler struct {
	devices Service
	logger  *slog.Logger
}

// New creates a device Handler.
func New(devices Service, logger *slog.Logger) *Handler {
	return &Handler{devices: devices, logger: logger}
}

// RegisterAdmin mounts the admin-guarded device routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/devices", h.handleEnroll)
	r.Get("/devices/{id}", h.handleGet)
	r.Post("/devices/{id}/revoke", h.handleRevoke)
}

// RegisterPublic mounts the token exchange, which authenticates by device
// secret rather than admin token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/devices/token", h.handleToken)
}

// EnrollRequest is the POST /devices body.
type EnrollRequest struct {
	Name string `json:"name"`
}

func (r *EnrollRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

type enrollResponse struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	// Secret is shown exactly once; only its hash is stored.
	Secret string `json:"secret"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	enrollment, err := h.devices.Enroll(ctx, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to enroll device",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, enrollResponse{
		DeviceID:    enrollment.Device.ID.String(),
		Name:        enrollment.Device.Name,
		DisplayName: enrollment.Device.DisplayName,
		Secret:      enrollment.Secret,
	})
}

// TokenRequest is the POST /devices/token body.
type TokenRequest struct {
	DeviceID string `json:"device_id"`
	Secret   string `json:"secret"`

	deviceID id.DeviceID
}

func (r *TokenRequest) Validate() error {
	deviceID, err := id.ParseDeviceID(r.DeviceID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid device_id")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	r.deviceID = deviceID
	return nil
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.devices.Authenticate(ctx, req.deviceID, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to authenticate device",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

type deviceResponse struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Revoked     bool   `json:"revoked"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	dev, err := h.devices.Get(ctx, deviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deviceResponse{
		DeviceID:    dev.ID.String(),
		Name:        dev.Name,
		DisplayName: dev.DisplayName,
		Revoked:     dev.Revoked,
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.devices.Revoke(ctx, deviceID); err != nil {
		h.logger.WarnContext(ctx, "failed to revoke device",
			"request_id", requestID,
			"device_id", deviceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
