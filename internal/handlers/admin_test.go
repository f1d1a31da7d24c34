package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"careassist/internal/recordstore"
	"careassist/internal/recordstore/mocks"
	"careassist/internal/service"
)

func adminRouter(handler *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/admin/appointments", handler.ListAppointments)
	r.Patch("/api/admin/appointments/{id}", handler.UpdateAppointment)
	r.Get("/api/admin/notifications", handler.ListNotifications)
	r.Post("/api/admin/notifications/read", handler.MarkNotificationRead)
	r.Get("/api/admin/chat-history", handler.ChatHistory)
	r.Get("/api/admin/statistics", handler.Statistics)
	return r
}

func TestAdminHandler_ListAppointments(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Query(gomock.Any(), recordstore.CollectionAppointments, map[string]any{"status": "pending"}, 10).
		Return([]recordstore.Record{{ID: "a1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/appointments?status=pending&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp RecordListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "a1" {
		t.Errorf("records = %+v", resp.Records)
	}
}

func TestAdminHandler_ListAppointmentsBadStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/appointments?status=bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdminHandler_UpdateAppointment(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Update(gomock.Any(), recordstore.CollectionAppointments, "a1", map[string]any{"status": "confirmed"}).
		Return(nil)

	body := bytes.NewBufferString(`{"status":"confirmed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/appointments/a1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp UpdateAppointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "a1" || resp.Status != "confirmed" {
		t.Errorf("response = %+v", resp)
	}
}

func TestAdminHandler_UpdateAppointmentNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Update(gomock.Any(), recordstore.CollectionAppointments, "missing", gomock.Any()).
		Return(recordstore.ErrNotFound)

	body := bytes.NewBufferString(`{"status":"cancelled"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/appointments/missing", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdminHandler_ChatHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Query(gomock.Any(), recordstore.CollectionChatHistory, map[string]any{"session": "s1"}, defaultListLimit).
		Return([]recordstore.Record{{ID: "m1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/chat-history?session=s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminHandler_MarkNotificationRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Update(gomock.Any(), recordstore.CollectionNotifications, "n1", map[string]any{"read": true}).
		Return(nil)

	body := bytes.NewBufferString(`{"id":"n1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/notifications/read", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminHandler_Notifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	router := adminRouter(NewAdminHandler(service.NewAdminService(store, nil)))

	store.EXPECT().
		Query(gomock.Any(), recordstore.CollectionNotifications, nil, defaultListLimit).
		Return([]recordstore.Record{{ID: "n1"}, {ID: "n2"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp RecordListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Errorf("got %d records, want 2", len(resp.Records))
	}
}
