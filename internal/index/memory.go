package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-process vector store using brute-force cosine
// search. Vectors are expected to be L2-normalized, so the dot product is the
// cosine similarity. Readers search against a consistent snapshot while a
// writer mutates.
type MemoryBackend struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemoryBackend creates an empty in-memory vector store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		points: make(map[string]Point),
	}
}

// Upsert inserts or updates points.
func (m *MemoryBackend) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point with empty ID")
		}
		m.points[p.ID] = p
	}
	return nil
}

// Search returns the k stored points with the highest dot product against the
// query vector.
func (m *MemoryBackend) Search(_ context.Context, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	m.mu.RLock()
	results := make([]SearchResult, 0, len(m.points))
	for _, p := range m.points {
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   dot(query, p.Vec),
			Meta:    p.Meta,
		})
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by ID. Unknown IDs are ignored.
func (m *MemoryBackend) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

// Count returns the number of stored points.
func (m *MemoryBackend) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
