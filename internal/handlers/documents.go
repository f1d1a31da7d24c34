package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"careassist/internal/contextutil"
	"careassist/internal/service"
)

// maxUploadBytes caps the size of a single document upload.
const maxUploadBytes = 16 << 20

// Ingestor is the slice of the ingest service the HTTP layer needs.
// This interface is defined from the handler's perspective (consumer-first).
type Ingestor interface {
	ReloadAll(ctx context.Context) (service.IngestReport, error)
	Upload(ctx context.Context, name string, data []byte) error
	Documents(ctx context.Context) ([]service.DocumentStatus, error)
	Status() service.IngestStatus
}

// DocumentsHandler lists stored documents and accepts uploads.
type DocumentsHandler struct {
	ingest Ingestor
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(ingest Ingestor) *DocumentsHandler {
	return &DocumentsHandler{
		ingest: ingest,
	}
}

// DocumentInfo represents one stored document in the HTTP response.
type DocumentInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Loaded    bool      `json:"loaded"`
}

// DocumentListResponse represents the document listing payload.
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

// UploadResponse acknowledges a stored document.
type UploadResponse struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ServeHTTP handles document listing and uploads.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *DocumentsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.ingest.Documents(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	resp := DocumentListResponse{Documents: make([]DocumentInfo, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, DocumentInfo{
			Name:      doc.Name,
			Size:      doc.Size,
			CreatedAt: doc.CreatedAt,
			Loaded:    doc.Loaded,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart upload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	if err := h.ingest.Upload(ctx, header.Filename, data); err != nil {
		handleServiceError(w, ctx, err, "Failed to store document")
		return
	}
	logger.InfoContext(ctx, "document uploaded", "name", header.Filename, "size", len(data))

	writeJSON(w, http.StatusCreated, UploadResponse{
		Name: header.Filename,
		Size: int64(len(data)),
	})
}
