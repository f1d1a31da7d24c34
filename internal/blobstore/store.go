package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobInfo describes a stored document blob.
type BlobInfo struct {
	// Name is the blob identity, unique within the store.
	Name string
	// Size is the blob size in bytes.
	Size int64
	// CreatedAt is when the blob was first stored.
	CreatedAt time.Time
}

// Store defines the interface for document blob storage.
// Implementations: GCS-backed (production) and directory-backed (local/dev).
type Store interface {
	// List returns metadata for all blobs whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)

	// Get returns the raw bytes of the named blob. Returns ErrNotFound if missing.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put stores data under the given name, overwriting any existing blob.
	Put(ctx context.Context, name string, data []byte) error
}
