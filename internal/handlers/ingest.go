package handlers

import (
	"net/http"

	"careassist/internal/contextutil"
)

// ReloadHandler triggers a full reload of the document index.
type ReloadHandler struct {
	ingest Ingestor
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(ingest Ingestor) *ReloadHandler {
	return &ReloadHandler{
		ingest: ingest,
	}
}

// ServeHTTP handles reload requests.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	report, err := h.ingest.ReloadAll(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to reload documents")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// StatusHandler reports the ingestion and index state.
type StatusHandler struct {
	ingest Ingestor
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(ingest Ingestor) *StatusHandler {
	return &StatusHandler{
		ingest: ingest,
	}
}

// ServeHTTP handles status requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.ingest.Status())
}
