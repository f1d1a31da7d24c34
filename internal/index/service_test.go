package index

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"careassist/internal/chunker"
)

// hashEmbedder is a deterministic bag-of-words embedder for tests: each token
// bumps one dimension, then the vector is L2-normalized. Texts sharing tokens
// get similar vectors; disjoint texts are near-orthogonal.
type hashEmbedder struct {
	dim  int
	fail error
}

func (e *hashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			vec[int(h.Sum32())%e.dim]++
		}
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if sum > 0 {
			norm := float32(math.Sqrt(sum))
			for j := range vec {
				vec[j] /= norm
			}
		}
		out[i] = vec
	}
	return out, nil
}

func chunksOf(source string, texts ...string) []chunker.Chunk {
	out := make([]chunker.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunker.Chunk{Text: t, Source: source, PageOrSheet: 1, Seq: i}
	}
	return out
}

func newTestService() (*Service, *MemoryBackend) {
	backend := NewMemoryBackend()
	return NewService(&hashEmbedder{dim: 64}, backend), backend
}

func TestService_MergeAndSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	result, err := svc.Merge(ctx, "guide.pdf", chunksOf("guide.pdf",
		"visiting hours are ten to eight",
		"the cafeteria serves lunch at noon",
		"zygomatic surgery is on floor three",
	))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Skipped || result.Replaced || result.Entries != 3 {
		t.Errorf("Merge() = %+v", result)
	}
	if !svc.Ready() {
		t.Error("Ready() = false after merge")
	}

	// A chunk holding a unique token surfaces for a query of just that token.
	hits, err := svc.Search(ctx, "zygomatic", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Search() returned no hits")
	}
	if text, _ := hits[0].Meta["text"].(string); !strings.Contains(text, "zygomatic") {
		t.Errorf("top hit = %q, want the zygomatic chunk", text)
	}
}

func TestService_MergeIdempotentReload(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()
	chunks := chunksOf("doc.pdf", "alpha content", "beta content")

	if _, err := svc.Merge(ctx, "doc.pdf", chunks); err != nil {
		t.Fatalf("first Merge() error = %v", err)
	}
	before, _ := backend.Count(ctx)

	result, err := svc.Merge(ctx, "doc.pdf", chunks)
	if err != nil {
		t.Fatalf("second Merge() error = %v", err)
	}
	if !result.Skipped {
		t.Error("second Merge() Skipped = false, want true")
	}
	after, _ := backend.Count(ctx)
	if after != before {
		t.Errorf("entry count changed on unchanged reload: %d -> %d", before, after)
	}
}

func TestService_MergeReplacesChangedContent(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()

	if _, err := svc.Merge(ctx, "doc.pdf", chunksOf("doc.pdf", "old one", "old two", "old three")); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	result, err := svc.Merge(ctx, "doc.pdf", chunksOf("doc.pdf", "replacement text"))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !result.Replaced || result.Entries != 1 {
		t.Errorf("Merge() = %+v, want Replaced with 1 entry", result)
	}

	// Old entries are gone: only the replacement remains.
	count, _ := backend.Count(ctx)
	if count != 1 {
		t.Errorf("backend count = %d, want 1", count)
	}
	if got := svc.Entries(); got != 1 {
		t.Errorf("Entries() = %d, want 1", got)
	}
}

func TestService_EmbedFailureLeavesIndexUntouched(t *testing.T) {
	embedder := &hashEmbedder{dim: 64}
	backend := NewMemoryBackend()
	svc := NewService(embedder, backend)
	ctx := context.Background()

	if _, err := svc.Merge(ctx, "stable.pdf", chunksOf("stable.pdf", "kept content")); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	before, _ := backend.Count(ctx)

	embedder.fail = errors.New("embedding endpoint down")
	if _, err := svc.Merge(ctx, "broken.pdf", chunksOf("broken.pdf", "lost content")); err == nil {
		t.Fatal("Merge() with failing embedder expected error")
	}

	after, _ := backend.Count(ctx)
	if after != before {
		t.Errorf("failed merge mutated the index: %d -> %d entries", before, after)
	}
	if len(svc.Loaded()) != 1 || svc.Loaded()[0] != "stable.pdf" {
		t.Errorf("Loaded() = %v, want [stable.pdf]", svc.Loaded())
	}
}

func TestService_EvictAndDiscard(t *testing.T) {
	svc, backend := newTestService()
	ctx := context.Background()

	_, _ = svc.Merge(ctx, "a.pdf", chunksOf("a.pdf", "content a"))
	_, _ = svc.Merge(ctx, "b.pdf", chunksOf("b.pdf", "content b"))

	if err := svc.Evict(ctx, "a.pdf"); err != nil {
		t.Fatalf("Evict() error = %v", err)
	}
	if err := svc.Evict(ctx, "never-loaded.pdf"); err != nil {
		t.Errorf("Evict(unknown) error = %v, want nil", err)
	}
	if count, _ := backend.Count(ctx); count != 1 {
		t.Errorf("count after evict = %d, want 1", count)
	}

	if err := svc.Discard(ctx); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if svc.Ready() {
		t.Error("Ready() = true after discard")
	}
	if count, _ := backend.Count(ctx); count != 0 {
		t.Errorf("count after discard = %d, want 0", count)
	}
}

func TestService_Stats(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Merge(ctx, "a.pdf", chunksOf("a.pdf", "one", "two"))
	_, _ = svc.Merge(ctx, "b.pdf", chunksOf("b.pdf", "three"))

	stats := svc.Stats()
	if stats.Documents != 2 || stats.Entries != 3 {
		t.Errorf("Stats() = %+v, want 2 documents, 3 entries", stats)
	}
}

func TestMemoryBackend_SearchOrdering(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	err := backend.Upsert(ctx, []Point{
		{ID: "far", Vec: []float32{0, 1}},
		{ID: "near", Vec: []float32{1, 0}},
		{ID: "mid", Vec: []float32{0.7, 0.7}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	hits, err := backend.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].PointID != "near" || hits[1].PointID != "mid" {
		t.Errorf("Search() = %+v, want near then mid", hits)
	}
}
