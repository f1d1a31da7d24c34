// Package index embeds document chunks and maintains the vector index used
// for retrieval.
package index

import "context"

// Point is one indexed vector with its chunk payload.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult is one similarity hit.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Backend stores vectors and answers nearest-neighbor queries.
type Backend interface {
	// Upsert inserts or updates points.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the k points most similar to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)
}

// Embedder turns texts into fixed-dimension normalized vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
