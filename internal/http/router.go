// Package http wires the handler layer into a chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"careassist/internal/handlers"
	"careassist/internal/recordstore"
	"careassist/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService  service.ChatService
	IngestSvc    handlers.Ingestor
	AdminService *service.AdminService
	Records      recordstore.Store
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.IngestSvc)
	reloadHandler := handlers.NewReloadHandler(deps.IngestSvc)
	statusHandler := handlers.NewStatusHandler(deps.IngestSvc)
	healthHandler := handlers.NewHealthHandler(deps.Records, deps.IngestSvc)
	adminHandler := handlers.NewAdminHandler(deps.AdminService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)

		r.Method(http.MethodGet, "/documents", documentsHandler)
		r.Method(http.MethodPost, "/documents", documentsHandler)
		r.Method(http.MethodPost, "/reload", reloadHandler)
		r.Method(http.MethodGet, "/status", statusHandler)
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/appointments", adminHandler.ListAppointments)
			r.Patch("/appointments/{id}", adminHandler.UpdateAppointment)
			r.Get("/notifications", adminHandler.ListNotifications)
			r.Post("/notifications/read", adminHandler.MarkNotificationRead)
			r.Get("/chat-history", adminHandler.ChatHistory)
			r.Get("/statistics", adminHandler.Statistics)
		})
	})

	return r
}
