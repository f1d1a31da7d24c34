package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"careassist/internal/contextutil"
	"careassist/internal/recordstore"
	"careassist/internal/service"
)

// defaultListLimit bounds admin listings when the client does not ask for a
// specific page size.
const defaultListLimit = 50

// AdminHandler exposes the operational records to administrators.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{
		admin: admin,
	}
}

// RecordListResponse wraps a list of operational records.
type RecordListResponse struct {
	Records []recordstore.Record `json:"records"`
}

// UpdateAppointmentRequest represents the status update payload.
type UpdateAppointmentRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateAppointmentResponse acknowledges a status update.
type UpdateAppointmentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListAppointments handles GET /api/admin/appointments.
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := r.URL.Query().Get("status")
	records, err := h.admin.ListAppointments(ctx, status, queryLimit(r, defaultListLimit))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list appointments")
		return
	}

	writeJSON(w, http.StatusOK, RecordListResponse{Records: records})
}

// UpdateAppointment handles PATCH /api/admin/appointments/{id}.
func (h *AdminHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.admin.UpdateAppointmentStatus(ctx, id, req.Status, req.Notes); err != nil {
		handleServiceError(w, ctx, err, "Failed to update appointment")
		return
	}

	writeJSON(w, http.StatusOK, UpdateAppointmentResponse{
		ID:     id,
		Status: req.Status,
	})
}

// ListNotifications handles GET /api/admin/notifications.
func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.admin.ListNotifications(ctx, queryLimit(r, defaultListLimit))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, RecordListResponse{Records: records})
}

// MarkNotificationReadRequest identifies the notification to mark read.
type MarkNotificationReadRequest struct {
	ID string `json:"id"`
}

// MarkNotificationRead handles POST /api/admin/notifications/read.
func (h *AdminHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req MarkNotificationReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.admin.MarkNotificationRead(ctx, req.ID); err != nil {
		handleServiceError(w, ctx, err, "Failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID})
}

// ChatHistory handles GET /api/admin/chat-history.
func (h *AdminHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := r.URL.Query().Get("session")
	role := r.URL.Query().Get("role")
	records, err := h.admin.ChatHistory(ctx, session, role, queryLimit(r, defaultListLimit))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list chat history")
		return
	}

	writeJSON(w, http.StatusOK, RecordListResponse{Records: records})
}

// Statistics handles GET /api/admin/statistics.
func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.admin.Statistics(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to collect statistics")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
