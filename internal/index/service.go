package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"careassist/internal/chunker"
	"careassist/internal/contextutil"
)

// docState tracks one document's presence in the index. A document identity
// is either fully represented by its chunk IDs or absent, never partially.
type docState struct {
	contentHash string
	chunkIDs    []string
}

// Stats summarizes the index.
type Stats struct {
	Documents int `json:"documents"`
	Entries   int `json:"entries"`
}

// MergeResult reports what one merge did.
type MergeResult struct {
	// Skipped is true when the document was already indexed with
	// identical content and the merge was a no-op.
	Skipped bool
	// Replaced is true when older entries for the same identity were
	// evicted first.
	Replaced bool
	// Entries is the number of index entries now held for the document.
	Entries int
}

// Service embeds chunks and maintains the vector index. Merges are serialized
// by a single-writer lock; searches read the last fully merged state and never
// block on an in-flight merge.
type Service struct {
	embedder Embedder
	backend  Backend

	writeMu sync.Mutex // serializes merges and discards

	mu     sync.RWMutex
	loaded map[string]docState
}

// NewService creates an index service over the given embedder and backend.
func NewService(embedder Embedder, backend Backend) *Service {
	return &Service{
		embedder: embedder,
		backend:  backend,
		loaded:   make(map[string]docState),
	}
}

// Merge embeds the chunks and adds them to the index under the document
// identity source. Re-merging unchanged content is a no-op; changed content
// evicts the identity's old entries so the swap is all-or-nothing from the
// caller's point of view. Embedding failure leaves the index untouched.
func (s *Service) Merge(ctx context.Context, source string, chunks []chunker.Chunk) (MergeResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return MergeResult{}, fmt.Errorf("no chunks to merge for %s", source)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	hash := contentHash(chunks)
	prior, existed := s.lookup(source)
	if existed && prior.contentHash == hash {
		logger.InfoContext(ctx, "document unchanged, skipping merge",
			"document", source, "entries", len(prior.chunkIDs))
		return MergeResult{Skipped: true, Entries: len(prior.chunkIDs)}, nil
	}

	// Embed the whole batch before touching the index, so an embedding
	// failure cannot leave a document half-indexed.
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to embed chunks for %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return MergeResult{}, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]Point, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		ids[i] = id
		points[i] = Point{
			ID:  id,
			Vec: vectors[i],
			Meta: map[string]any{
				"source": c.Source,
				"page":   c.PageOrSheet,
				"seq":    c.Seq,
				"text":   c.Text,
			},
		}
	}

	if err := s.backend.Upsert(ctx, points); err != nil {
		return MergeResult{}, fmt.Errorf("failed to index chunks for %s: %w", source, err)
	}
	if existed {
		if err := s.backend.Delete(ctx, prior.chunkIDs); err != nil {
			// Roll back the new entries so the document keeps its prior
			// state rather than appearing twice.
			if rbErr := s.backend.Delete(ctx, ids); rbErr != nil {
				logger.ErrorContext(ctx, "rollback after failed eviction also failed",
					"document", source, "error", rbErr)
			}
			return MergeResult{}, fmt.Errorf("failed to evict stale entries for %s: %w", source, err)
		}
	}

	s.mu.Lock()
	s.loaded[source] = docState{contentHash: hash, chunkIDs: ids}
	s.mu.Unlock()

	logger.InfoContext(ctx, "document merged into index",
		"document", source, "entries", len(ids), "replaced", existed)
	return MergeResult{Replaced: existed, Entries: len(ids)}, nil
}

// Search embeds the query text and returns the k most similar entries.
func (s *Service) Search(ctx context.Context, text string, k int) ([]SearchResult, error) {
	vectors, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.backend.Search(ctx, vectors[0], k)
}

// Evict removes one document identity from the index. Evicting an unknown
// identity is a no-op.
func (s *Service) Evict(ctx context.Context, source string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, ok := s.lookup(source)
	if !ok {
		return nil
	}
	if err := s.backend.Delete(ctx, state.chunkIDs); err != nil {
		return fmt.Errorf("failed to evict %s: %w", source, err)
	}

	s.mu.Lock()
	delete(s.loaded, source)
	s.mu.Unlock()
	return nil
}

// Discard drops every indexed document, returning the index to its empty
// state.
func (s *Service) Discard(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	var ids []string
	for _, state := range s.loaded {
		ids = append(ids, state.chunkIDs...)
	}
	s.mu.RUnlock()

	if err := s.backend.Delete(ctx, ids); err != nil {
		return fmt.Errorf("failed to discard index: %w", err)
	}

	s.mu.Lock()
	s.loaded = make(map[string]docState)
	s.mu.Unlock()
	return nil
}

// Ready reports whether at least one document is indexed.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loaded) > 0
}

// Loaded returns the identities of the indexed documents.
func (s *Service) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.loaded))
	for source := range s.loaded {
		out = append(out, source)
	}
	return out
}

// Entries returns the number of index entries currently tracked.
func (s *Service) Entries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, state := range s.loaded {
		n += len(state.chunkIDs)
	}
	return n
}

// Stats reports document and entry counts.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, state := range s.loaded {
		n += len(state.chunkIDs)
	}
	return Stats{Documents: len(s.loaded), Entries: n}
}

func (s *Service) lookup(source string) (docState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.loaded[source]
	return state, ok
}

// contentHash fingerprints a document's chunk texts in order.
func contentHash(chunks []chunker.Chunk) string {
	h := sha256.New()
	for _, c := range chunks {
		h.Write([]byte(c.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
