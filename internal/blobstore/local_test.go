package blobstore

import (
	"context"
	"errors"
	"testing"
)

func TestLocalStore_PutGetList(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "guides/services.pdf", []byte("pdf-bytes")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "rates.csv", []byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := store.Get(ctx, "guides/services.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Errorf("Get() = %q, want %q", data, "pdf-bytes")
	}

	blobs, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("List() returned %d blobs, want 2", len(blobs))
	}
	// Sorted by name.
	if blobs[0].Name != "guides/services.pdf" || blobs[1].Name != "rates.csv" {
		t.Errorf("List() names = %q, %q", blobs[0].Name, blobs[1].Name)
	}
	if blobs[0].Size != int64(len("pdf-bytes")) {
		t.Errorf("List() size = %d, want %d", blobs[0].Size, len("pdf-bytes"))
	}

	filtered, err := store.List(ctx, "guides/")
	if err != nil {
		t.Fatalf("List(prefix) error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "guides/services.pdf" {
		t.Errorf("List(prefix) = %+v, want only guides/services.pdf", filtered)
	}
}

func TestLocalStore_GetMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	_, err = store.Get(context.Background(), "nope.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	if err := store.Put(context.Background(), "../outside.txt", []byte("x")); err == nil {
		t.Error("Put() with escaping name expected error, got nil")
	}
	if _, err := store.Get(context.Background(), ""); err == nil {
		t.Error("Get() with empty name expected error, got nil")
	}
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "doc.pdf", []byte("v1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "doc.pdf", []byte("v2-longer")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := store.Get(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "v2-longer" {
		t.Errorf("Get() after overwrite = %q, want %q", data, "v2-longer")
	}
}
