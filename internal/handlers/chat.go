package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService careassist/internal/service ChatService

import (
	"encoding/json"
	"net/http"

	"careassist/internal/contextutil"
	"careassist/internal/intent"
	"careassist/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
	Role    string `json:"role,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// AppointmentPayload carries the captured appointment request back to the client.
type AppointmentPayload struct {
	ID    string                  `json:"id,omitempty"`
	Draft intent.AppointmentDraft `json:"draft"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply       string              `json:"reply"`
	SessionID   string              `json:"sessionId"`
	Appointment *AppointmentPayload `json:"appointment,omitempty"`
	Retrieved   int                 `json:"retrieved"`
	Stored      bool                `json:"stored"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, service.ChatRequest{
		Message: req.Message,
		UserID:  req.UserID,
		Role:    req.Role,
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	resp := ChatResponse{
		Reply:     svcResp.Reply,
		SessionID: svcResp.SessionID,
		Retrieved: svcResp.Retrieved,
		Stored:    svcResp.Stored,
	}
	if svcResp.Appointment != nil {
		resp.Appointment = &AppointmentPayload{
			ID:    svcResp.Appointment.ID,
			Draft: svcResp.Appointment.Draft,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
