package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"careassist/internal/contextutil"
)

// GCSStore implements Store on top of a Google Cloud Storage bucket.
// All blob names are stored under a fixed object prefix so the bucket can be
// shared with other data.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCS-backed blob store. Credentials are resolved from
// the environment (application default credentials).
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must not be empty")
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// List returns metadata for all objects under the store prefix whose remaining
// name starts with prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	logger := contextutil.LoggerFromContext(ctx)

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: s.prefix + prefix,
	})

	var blobs []BlobInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to list objects", "bucket", s.bucket, "error", err)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		name := strings.TrimPrefix(attrs.Name, s.prefix)
		if name == "" {
			continue // prefix placeholder object
		}
		blobs = append(blobs, BlobInfo{
			Name:      name,
			Size:      attrs.Size,
			CreatedAt: attrs.Created,
		})
	}
	return blobs, nil
}

// Get downloads the named object and returns its bytes.
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.prefix + name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", name, err)
	}
	defer func() {
		_ = r.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", name, err)
	}
	return data, nil
}

// Put uploads data under the given name, overwriting any existing object.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	logger := contextutil.LoggerFromContext(ctx)

	w := s.client.Bucket(s.bucket).Object(s.prefix + name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for object %s: %w", name, err)
	}

	logger.InfoContext(ctx, "uploaded blob", "bucket", s.bucket, "name", name, "size", len(data))
	return nil
}

// Close releases the underlying storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
