// Package recordstore persists operational records: chat transcripts,
// appointment requests, and admin notifications. Records are schemaless
// field maps grouped into named collections.
package recordstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks careassist/internal/recordstore Store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// Collection names used by the service layer.
const (
	CollectionChatHistory   = "chat_history"
	CollectionAppointments  = "appointment_requests"
	CollectionNotifications = "admin_notifications"
)

// Record is one stored document.
type Record struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Store defines record persistence operations. Implementations assign IDs on
// create and return records newest first.
type Store interface {
	// Create stores a new record and returns it with its assigned ID.
	Create(ctx context.Context, collection string, fields map[string]any) (Record, error)

	// Get returns one record by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Record, error)

	// Query returns records whose fields match every filter entry, newest
	// first, up to limit (0 means no limit).
	Query(ctx context.Context, collection string, filter map[string]any, limit int) ([]Record, error)

	// Update merges fields into an existing record. Returns ErrNotFound
	// when absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Count returns how many records match the filter.
	Count(ctx context.Context, collection string, filter map[string]any) (int64, error)
}
