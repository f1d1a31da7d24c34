package service

import (
	"context"
	"fmt"

	"careassist/internal/contextutil"
	"careassist/internal/conversation"
	"careassist/internal/index"
	"careassist/internal/recordstore"
)

// Appointment statuses an admin may set.
var appointmentStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"cancelled": true,
	"completed": true,
}

// Statistics is the admin dashboard summary.
type Statistics struct {
	Appointments         int64            `json:"appointments"`
	AppointmentsByStatus map[string]int64 `json:"appointmentsByStatus"`
	Notifications        int64            `json:"notifications"`
	ChatMessages         int64            `json:"chatMessages"`
	MessagesByRole       map[string]int64 `json:"messagesByRole"`
	Index                index.Stats      `json:"index"`
}

// AdminService exposes the operational records to administrators.
type AdminService struct {
	records recordstore.Store
	index   Indexer
}

// NewAdminService creates an AdminService.
func NewAdminService(records recordstore.Store, idx Indexer) *AdminService {
	return &AdminService{
		records: records,
		index:   idx,
	}
}

// ListAppointments returns appointment requests, optionally filtered by
// status, newest first.
func (s *AdminService) ListAppointments(ctx context.Context, status string, limit int) ([]recordstore.Record, error) {
	var filter map[string]any
	if status != "" {
		if !appointmentStatuses[status] {
			return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
		}
		filter = map[string]any{"status": status}
	}
	records, err := s.records.Query(ctx, recordstore.CollectionAppointments, filter, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list appointments")
	}
	return records, nil
}

// UpdateAppointmentStatus moves an appointment request to a new status,
// optionally attaching admin notes.
func (s *AdminService) UpdateAppointmentStatus(ctx context.Context, id, status, notes string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if id == "" {
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	if !appointmentStatuses[status] {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	fields := map[string]any{"status": status}
	if notes != "" {
		fields["adminNotes"] = notes
	}
	err := s.records.Update(ctx, recordstore.CollectionAppointments, id, fields)
	if err != nil {
		return WrapError(err, "failed to update appointment")
	}
	logger.InfoContext(ctx, "appointment status updated", "id", id, "status", status)
	return nil
}

// ListNotifications returns admin notifications, newest first.
func (s *AdminService) ListNotifications(ctx context.Context, limit int) ([]recordstore.Record, error) {
	records, err := s.records.Query(ctx, recordstore.CollectionNotifications, nil, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list notifications")
	}
	return records, nil
}

// MarkNotificationRead flags one admin notification as read.
func (s *AdminService) MarkNotificationRead(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	err := s.records.Update(ctx, recordstore.CollectionNotifications, id, map[string]any{"read": true})
	if err != nil {
		return WrapError(err, "failed to mark notification read")
	}
	return nil
}

// ChatHistory returns stored chat exchanges, optionally filtered by session
// and role.
func (s *AdminService) ChatHistory(ctx context.Context, session, role string, limit int) ([]recordstore.Record, error) {
	filter := map[string]any{}
	if session != "" {
		filter["session"] = session
	}
	if role != "" {
		filter["role"] = role
	}
	if len(filter) == 0 {
		filter = nil
	}
	records, err := s.records.Query(ctx, recordstore.CollectionChatHistory, filter, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list chat history")
	}
	return records, nil
}

// Statistics aggregates record counts and index shape.
func (s *AdminService) Statistics(ctx context.Context) (Statistics, error) {
	appointments, err := s.records.Count(ctx, recordstore.CollectionAppointments, nil)
	if err != nil {
		return Statistics{}, WrapError(err, "failed to count appointments")
	}

	byStatus := make(map[string]int64, len(appointmentStatuses))
	for status := range appointmentStatuses {
		n, err := s.records.Count(ctx, recordstore.CollectionAppointments, map[string]any{"status": status})
		if err != nil {
			return Statistics{}, WrapError(err, "failed to count appointments by status")
		}
		byStatus[status] = n
	}

	notifications, err := s.records.Count(ctx, recordstore.CollectionNotifications, nil)
	if err != nil {
		return Statistics{}, WrapError(err, "failed to count notifications")
	}
	messages, err := s.records.Count(ctx, recordstore.CollectionChatHistory, nil)
	if err != nil {
		return Statistics{}, WrapError(err, "failed to count chat messages")
	}

	byRole := make(map[string]int64, len(conversation.Roles()))
	for _, role := range conversation.Roles() {
		n, err := s.records.Count(ctx, recordstore.CollectionChatHistory, map[string]any{"role": string(role)})
		if err != nil {
			return Statistics{}, WrapError(err, "failed to count chat messages by role")
		}
		byRole[string(role)] = n
	}

	return Statistics{
		Appointments:         appointments,
		AppointmentsByStatus: byStatus,
		Notifications:        notifications,
		ChatMessages:         messages,
		MessagesByRole:       byRole,
		Index:                s.index.Stats(),
	}, nil
}
