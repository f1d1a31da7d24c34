package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answer_engine.go -package=mocks careassist/internal/service AnswerEngine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"careassist/internal/contextutil"
	"careassist/internal/conversation"
	"careassist/internal/format"
	"careassist/internal/intent"
	"careassist/internal/recordstore"
)

// Retrieval scores below this are treated as weak grounding and the reply
// gets a front-desk pointer appended.
const lowConfidenceScore = 0.25

// frontDeskGuidance replaces answers where the model declined to answer.
const frontDeskGuidance = "I'm sorry, I don't have that information on hand. " +
	"The front desk can help you with this question."

// notSpecified fills appointment fields the message did not provide.
const notSpecified = "Not specified"

var uncertaintyPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
}

// isUncertain reports whether the model declined to answer.
func isUncertain(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// AnswerEngine produces answers to user messages.
// This interface is defined from the service layer's perspective (consumer-first).
type AnswerEngine interface {
	Answer(ctx context.Context, session string, role conversation.Role, message string) (conversation.Result, error)
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message string `validate:"required"`
	UserID  string
	Role    string
	// Name and Phone are optional contact details used by the booking flow.
	Name  string
	Phone string
}

// AppointmentInfo describes an appointment request captured from a message.
type AppointmentInfo struct {
	ID    string                  `json:"id,omitempty"`
	Draft intent.AppointmentDraft `json:"draft"`
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	// Appointment is set when the message triggered the booking flow.
	Appointment *AppointmentInfo `json:"appointment,omitempty"`
	// Retrieved is how many document chunks grounded the answer.
	Retrieved int `json:"retrieved"`
	// Stored is false when record persistence was degraded for this
	// exchange; the reply itself is unaffected.
	Stored bool `json:"stored"`
}

// ChatService provides the conversational surface.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine  AnswerEngine
	records recordstore.Store
}

// NewChatService creates a new ChatService.
func NewChatService(engine AnswerEngine, records recordstore.Store) ChatService {
	return &chatService{
		engine:  engine,
		records: records,
	}
}

// ProcessChat answers one message. Appointment-intent messages go through the
// booking flow instead of the language model. Record persistence is
// best-effort: failures degrade the Stored flag, never the reply.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	session := req.UserID
	if session == "" {
		session = uuid.New().String()
	}
	role := conversation.NormalizeRole(req.Role)

	if intent.Classify(req.Message) {
		return s.processAppointment(ctx, session, req)
	}

	result, err := s.engine.Answer(ctx, session, role, req.Message)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "session", session, "error", err)
		return ChatResponse{}, WrapError(err, "failed to generate answer")
	}

	text := result.Text
	if isUncertain(text) {
		text = frontDeskGuidance
	}

	reply := format.Format(text)
	if result.Retrieved > 0 && result.TopScore < lowConfidenceScore {
		reply += "\n\nIf this doesn't fully answer your question, the front desk can help."
	}

	stored := s.recordExchange(ctx, session, string(role), req.Message, reply)
	logger.InfoContext(ctx, "chat request processed",
		"session", session, "role", string(role),
		"retrieved", result.Retrieved, "stored", stored)

	return ChatResponse{
		Reply:     reply,
		SessionID: session,
		Retrieved: result.Retrieved,
		Stored:    stored,
	}, nil
}

// processAppointment runs the booking flow: extract a draft, persist the
// request, notify admins, and confirm to the user. The message still goes
// through the answer engine so the reply carries the grounded answer ahead of
// the booking confirmation; an engine failure degrades to confirmation only.
func (s *chatService) processAppointment(ctx context.Context, session string, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	role := conversation.NormalizeRole(req.Role)

	draft := intent.Extract(req.Message)
	info := &AppointmentInfo{Draft: draft}
	stored := true

	var answer string
	var retrieved int
	result, err := s.engine.Answer(ctx, session, role, req.Message)
	if err != nil {
		logger.WarnContext(ctx, "failed to generate answer for appointment message",
			"session", session, "error", err)
	} else {
		retrieved = result.Retrieved
		if text := result.Text; strings.TrimSpace(text) != "" && !isUncertain(text) {
			answer = format.Format(text)
		}
	}

	reason := draft.Reason
	if reason == "" {
		// Without an explicit reason the message itself is the best hint.
		reason = truncateRunes(strings.TrimSpace(req.Message), 200)
	}

	record, err := s.records.Create(ctx, recordstore.CollectionAppointments, map[string]any{
		"userId":  req.UserID,
		"session": session,
		"message": req.Message,
		"name":    orNotSpecified(req.Name),
		"phone":   orNotSpecified(req.Phone),
		"date":    orNotSpecified(draft.Date),
		"time":    orNotSpecified(draft.Time),
		"reason":  reason,
		"status":  "pending",
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to store appointment request", "session", session, "error", err)
		stored = false
	} else {
		info.ID = record.ID
		if _, err := s.records.Create(ctx, recordstore.CollectionNotifications, map[string]any{
			"type":          "appointment_request",
			"appointmentId": record.ID,
			"session":       session,
			"read":          false,
		}); err != nil {
			logger.WarnContext(ctx, "failed to store admin notification", "session", session, "error", err)
		}
	}

	reply := confirmationText(draft, req.Name, req.Phone)
	if answer != "" {
		reply = answer + "\n\n" + reply
	}
	if ok := s.recordExchange(ctx, session, string(role), req.Message, reply); !ok {
		stored = false
	}

	logger.InfoContext(ctx, "appointment request captured",
		"session", session, "appointment_id", info.ID,
		"retrieved", retrieved, "stored", stored)

	return ChatResponse{
		Reply:       reply,
		SessionID:   session,
		Appointment: info,
		Retrieved:   retrieved,
		Stored:      stored,
	}, nil
}

// recordExchange persists both turns of the exchange, best-effort.
func (s *chatService) recordExchange(ctx context.Context, session, role, message, reply string) bool {
	logger := contextutil.LoggerFromContext(ctx)

	_, err := s.records.Create(ctx, recordstore.CollectionChatHistory, map[string]any{
		"session": session,
		"role":    role,
		"message": message,
		"reply":   reply,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to store chat exchange", "session", session, "error", err)
		return false
	}
	return true
}

// confirmationText acknowledges the request, echoes what was captured, and
// asks for whatever is still missing.
func confirmationText(draft intent.AppointmentDraft, name, phone string) string {
	var b strings.Builder
	b.WriteString("I've noted your appointment request.")

	if draft.Date != "" {
		fmt.Fprintf(&b, " Date: %s.", draft.Date)
	}
	if draft.Time != "" {
		fmt.Fprintf(&b, " Time: %s.", draft.Time)
	}
	if draft.Reason != "" {
		fmt.Fprintf(&b, " Reason: %s.", draft.Reason)
	}

	var missing []string
	if draft.Date == "" {
		missing = append(missing, "a preferred date")
	}
	if draft.Time == "" {
		missing = append(missing, "a preferred time")
	}
	if draft.Reason == "" {
		missing = append(missing, "the reason for your visit")
	}
	if name == "" || phone == "" {
		missing = append(missing, "your name and a contact number")
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Could you also share %s?", strings.Join(missing, " and "))
	} else {
		b.WriteString(" Our staff will contact you to confirm the appointment.")
	}
	return b.String()
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
