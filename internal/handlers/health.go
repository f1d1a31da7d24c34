package handlers

import (
	"context"
	"net/http"
	"time"

	"careassist/internal/contextutil"
	"careassist/internal/recordstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	records            recordstore.Store
	ingest             Ingestor
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(records recordstore.Store, ingest Ingestor) *HealthHandler {
	return &HealthHandler{
		records:            records,
		ingest:             ingest,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy".
	Status string `json:"status"`

	// Timestamp of the health check.
	Timestamp string `json:"timestamp"`

	// Individual check results.
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy).
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles health check requests. Returns 200 OK when the record
// store answers, 503 Service Unavailable otherwise. An empty index is
// reported in the checks but does not fail the probe.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if _, err := h.records.Count(checkCtx, recordstore.CollectionChatHistory, nil); err != nil {
		logger.WarnContext(ctx, "record store health check failed", "error", err)
		checks["records"] = "error"
		issues = append(issues, "record_store_unavailable")
	} else {
		checks["records"] = "ok"
	}

	if h.ingest.Status().Index.Entries > 0 {
		checks["index"] = "ok"
	} else {
		checks["index"] = "empty"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
