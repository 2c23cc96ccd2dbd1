// Package handler exposes the report export and dashboard endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	checkinModels "turnstile/internal/checkin/models"
	"turnstile/internal/report/encoder"
	"turnstile/internal/report/models"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	platformstrings "turnstile/pkg/platform/strings"
	"turnstile/pkg/requestcontext"
)

// Service defines the report operations the handler needs.
type Service interface {
	BuildReport(ctx context.Context, eventID id.EventID, opts models.Options) (*models.Report, error)
	BuildAttendanceLog(ctx context.Context) (*models.AttendanceLog, error)
	DashboardCounts(ctx context.Context) (*models.DashboardCounts, error)
	RecentScans(ctx context.Context, limit int) ([]checkinModels.FeedEntry, error)
	Render(format string, doc encoder.Document) ([]byte, error)
	RenderAll(doc encoder.Document, formats []string) (map[string][]byte, error)
}

// DocumentFor converts build results for rendering; injected so the handler
// stays free of row formatting.
type DocumentFor struct {
	Report     func(*models.Report) encoder.Document
	Attendance func(*models.AttendanceLog) encoder.Document
}

// Handler handles report endpoints.
type Handler struct {
	reports   Service
	documents DocumentFor
	logger    *slog.Logger
}

// New creates a report Handler.
func New(reports Service, documents DocumentFor, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, documents: documents, logger: logger}
}

// Register mounts the report routes. Admin auth is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events/{id}/report", h.handleEventReport)
	r.Get("/events/{id}/report/bundle", h.handleEventReportBundle)
	r.Get("/reports/attendance", h.handleAttendanceLog)
	r.Get("/reports/dashboard", h.handleDashboard)
	r.Get("/scans/recent", h.handleRecentScans)
}

const defaultFormat = "table"

func (h *Handler) buildEventDocument(r *http.Request) (encoder.Document, error) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		return encoder.Document{}, err
	}

	opts := models.Options{
		AttendedOnly: r.URL.Query().Get("attended_only") == "true",
	}
	report, err := h.reports.BuildReport(r.Context(), eventID, opts)
	if err != nil {
		return encoder.Document{}, err
	}
	return h.documents.Report(report), nil
}

func (h *Handler) handleEventReport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.buildEventDocument(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.renderDocument(w, r, doc)
}

func (h *Handler) handleEventReportBundle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	formats := platformstrings.DedupeAndTrimLower(strings.Split(r.URL.Query().Get("formats"), ","))
	if len(formats) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "formats query parameter is required"))
		return
	}

	doc, err := h.buildEventDocument(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rendered, err := h.reports.RenderAll(doc, formats)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to render report bundle",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	bundle := make(map[string]string, len(rendered))
	for format, content := range rendered {
		bundle[format] = string(content)
	}
	httputil.WriteJSON(w, http.StatusOK, bundle)
}

func (h *Handler) handleAttendanceLog(w http.ResponseWriter, r *http.Request) {
	log, err := h.reports.BuildAttendanceLog(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.renderDocument(w, r, h.documents.Attendance(log))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reports.DashboardCounts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleRecentScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid limit"))
			return
		}
		limit = parsed
	}

	entries, err := h.reports.RecentScans(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scans": entries})
}

func (h *Handler) renderDocument(w http.ResponseWriter, r *http.Request, doc encoder.Document) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = defaultFormat
	}

	rendered, err := h.reports.Render(format, doc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", encoder.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered)
}
