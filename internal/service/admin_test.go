package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"careassist/internal/chunker"
	"careassist/internal/recordstore"
	"careassist/internal/recordstore/mocks"
)

func TestAdmin_ListAppointments(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := NewAdminService(store, newFakeIndexer())
	ctx := context.Background()

	store.EXPECT().
		Query(ctx, recordstore.CollectionAppointments, map[string]any{"status": "pending"}, 10).
		Return([]recordstore.Record{{ID: "a1"}}, nil)

	records, err := svc.ListAppointments(ctx, "pending", 10)
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "a1" {
		t.Errorf("records = %+v", records)
	}

	if _, err := svc.ListAppointments(ctx, "bogus", 0); err == nil {
		t.Error("ListAppointments(bogus status) expected error")
	}
}

func TestAdmin_UpdateAppointmentStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := NewAdminService(store, newFakeIndexer())
	ctx := context.Background()

	store.EXPECT().
		Update(ctx, recordstore.CollectionAppointments, "a1", map[string]any{"status": "confirmed"}).
		Return(nil)
	if err := svc.UpdateAppointmentStatus(ctx, "a1", "confirmed", ""); err != nil {
		t.Fatalf("UpdateAppointmentStatus() error = %v", err)
	}

	store.EXPECT().
		Update(ctx, recordstore.CollectionAppointments, "a2", map[string]any{
			"status":     "cancelled",
			"adminNotes": "patient rescheduled",
		}).
		Return(nil)
	if err := svc.UpdateAppointmentStatus(ctx, "a2", "cancelled", "patient rescheduled"); err != nil {
		t.Fatalf("UpdateAppointmentStatus() with notes error = %v", err)
	}

	if err := svc.UpdateAppointmentStatus(ctx, "", "confirmed", ""); err == nil {
		t.Error("empty id expected error")
	}
	if err := svc.UpdateAppointmentStatus(ctx, "a1", "unknown", ""); err == nil {
		t.Error("unknown status expected error")
	}

	store.EXPECT().
		Update(ctx, recordstore.CollectionAppointments, "missing", gomock.Any()).
		Return(recordstore.ErrNotFound)
	if err := svc.UpdateAppointmentStatus(ctx, "missing", "cancelled", ""); !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("error = %v, want wrapped ErrNotFound", err)
	}
}

func TestAdmin_ChatHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := NewAdminService(store, newFakeIndexer())
	ctx := context.Background()

	store.EXPECT().
		Query(ctx, recordstore.CollectionChatHistory, map[string]any{"session": "s1"}, 50).
		Return([]recordstore.Record{{ID: "m1"}, {ID: "m2"}}, nil)

	records, err := svc.ChatHistory(ctx, "s1", "", 50)
	if err != nil {
		t.Fatalf("ChatHistory() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}

	store.EXPECT().
		Query(ctx, recordstore.CollectionChatHistory, map[string]any{"role": "patient"}, 50).
		Return([]recordstore.Record{{ID: "m1"}}, nil)
	if _, err := svc.ChatHistory(ctx, "", "patient", 50); err != nil {
		t.Fatalf("ChatHistory(role) error = %v", err)
	}
}

func TestAdmin_MarkNotificationRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := NewAdminService(store, newFakeIndexer())
	ctx := context.Background()

	store.EXPECT().
		Update(ctx, recordstore.CollectionNotifications, "n1", map[string]any{"read": true}).
		Return(nil)
	if err := svc.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}

	if err := svc.MarkNotificationRead(ctx, ""); err == nil {
		t.Error("empty id expected error")
	}

	store.EXPECT().
		Update(ctx, recordstore.CollectionNotifications, "missing", gomock.Any()).
		Return(recordstore.ErrNotFound)
	if err := svc.MarkNotificationRead(ctx, "missing"); !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("error = %v, want wrapped ErrNotFound", err)
	}
}

func TestAdmin_Statistics(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	idx := newFakeIndexer()
	_, _ = idx.Merge(context.Background(), "doc.md", make([]chunker.Chunk, 3))
	svc := NewAdminService(store, idx)
	ctx := context.Background()

	store.EXPECT().Count(ctx, recordstore.CollectionAppointments, nil).Return(int64(5), nil)
	store.EXPECT().Count(ctx, recordstore.CollectionAppointments, map[string]any{"status": "pending"}).Return(int64(2), nil)
	store.EXPECT().Count(ctx, recordstore.CollectionAppointments, gomock.Any()).Return(int64(1), nil).Times(3)
	store.EXPECT().Count(ctx, recordstore.CollectionNotifications, nil).Return(int64(4), nil)
	store.EXPECT().Count(ctx, recordstore.CollectionChatHistory, nil).Return(int64(9), nil)
	store.EXPECT().Count(ctx, recordstore.CollectionChatHistory, map[string]any{"role": "patient"}).Return(int64(6), nil)
	store.EXPECT().Count(ctx, recordstore.CollectionChatHistory, gomock.Any()).Return(int64(1), nil).Times(3)

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.Appointments != 5 || stats.Notifications != 4 || stats.ChatMessages != 9 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AppointmentsByStatus["pending"] != 2 {
		t.Errorf("AppointmentsByStatus = %+v", stats.AppointmentsByStatus)
	}
	if stats.MessagesByRole["patient"] != 6 {
		t.Errorf("MessagesByRole = %+v", stats.MessagesByRole)
	}
	if stats.Index.Documents != 1 || stats.Index.Entries != 3 {
		t.Errorf("index stats = %+v", stats.Index)
	}
}
