package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_indexer.go -package=mocks careassist/internal/service Indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"careassist/internal/blobstore"
	"careassist/internal/chunker"
	"careassist/internal/contextutil"
	"careassist/internal/index"
	"careassist/internal/loader"
)

// Indexer is the slice of the index the ingest path needs.
// This interface is defined from the service layer's perspective (consumer-first).
type Indexer interface {
	Merge(ctx context.Context, source string, chunks []chunker.Chunk) (index.MergeResult, error)
	Discard(ctx context.Context) error
	Entries() int
	Stats() index.Stats
	Loaded() []string
}

// DocumentLoader extracts normalized records from a raw document.
type DocumentLoader interface {
	Load(ctx context.Context, blob loader.Blob) ([]loader.Record, error)
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MaxCorpusChunks  int
	MaxRecordsPerDoc int
	// RebuildOnReload discards the index before a full reload instead of
	// merging into it.
	RebuildOnReload bool
}

// IngestReport summarizes one reload.
type IngestReport struct {
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
	// Truncated is set when the corpus chunk budget cut ingestion short.
	Truncated bool `json:"truncated"`
}

// IngestStatus reports the current ingestion state.
type IngestStatus struct {
	Running    bool        `json:"running"`
	LastReload time.Time   `json:"lastReload,omitzero"`
	Index      index.Stats `json:"index"`
}

// IngestService runs documents from the blob store through the loader,
// chunker, and index. Document processing fans out on a bounded worker pool
// so a large reload does not monopolize request-handling goroutines; merges
// themselves are serialized by the index.
type IngestService struct {
	blobs  blobstore.Store
	docs   DocumentLoader
	index  Indexer
	pool   *ants.Pool
	config IngestConfig

	mu         sync.Mutex // one reload at a time
	running    bool
	lastReload time.Time

	// budgetMu keeps the corpus budget check and the merge it authorizes
	// atomic across workers, so concurrent documents cannot jointly exceed
	// MaxCorpusChunks.
	budgetMu sync.Mutex
}

// NewIngestService creates the ingest service with a worker pool of the given
// size.
func NewIngestService(blobs blobstore.Store, docs DocumentLoader, idx Indexer, workers int, config IngestConfig) (*IngestService, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &IngestService{
		blobs:  blobs,
		docs:   docs,
		index:  idx,
		pool:   pool,
		config: config,
	}, nil
}

// Close releases the worker pool.
func (s *IngestService) Close() {
	s.pool.Release()
}

// ReloadAll ingests every document in the blob store. Failures are isolated
// per document: one broken file never aborts the rest.
func (s *IngestService) ReloadAll(ctx context.Context) (IngestReport, error) {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return IngestReport{}, fmt.Errorf("%w: reload already in progress", ErrInvalidInput)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastReload = time.Now()
		s.mu.Unlock()
	}()

	if s.config.RebuildOnReload {
		if err := s.index.Discard(ctx); err != nil {
			return IngestReport{}, WrapError(err, "failed to discard index before rebuild")
		}
	}

	blobs, err := s.blobs.List(ctx, "")
	if err != nil {
		return IngestReport{}, WrapError(err, "failed to list documents")
	}
	logger.InfoContext(ctx, "reloading documents", "count", len(blobs))

	var (
		wg       sync.WaitGroup
		reportMu sync.Mutex
		report   = IngestReport{Failed: make(map[string]string)}
	)
	for _, info := range blobs {
		name := info.Name
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			result, err := s.ingestOne(ctx, name)

			reportMu.Lock()
			defer reportMu.Unlock()
			switch {
			case err != nil:
				report.Failed[name] = err.Error()
				logger.ErrorContext(ctx, "failed to ingest document", "document", name, "error", err)
			case result.Skipped:
				report.Skipped++
			default:
				report.Processed++
			}
			if result.Truncated {
				report.Truncated = true
			}
		})
		if submitErr != nil {
			wg.Done()
			reportMu.Lock()
			report.Failed[name] = submitErr.Error()
			reportMu.Unlock()
		}
	}
	wg.Wait()

	if len(report.Failed) == 0 {
		report.Failed = nil
	}
	logger.InfoContext(ctx, "reload finished",
		"processed", report.Processed, "skipped", report.Skipped,
		"failed", len(report.Failed), "truncated", report.Truncated)
	return report, nil
}

// IngestOne loads, chunks, and indexes a single named document.
func (s *IngestService) IngestOne(ctx context.Context, name string) error {
	_, err := s.ingestOne(ctx, name)
	return err
}

// Upload stores a new document and indexes it immediately.
func (s *IngestService) Upload(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if len(data) == 0 {
		return &ValidationError{Field: "file", Message: "cannot be empty"}
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return WrapError(err, "failed to store document")
	}
	return s.IngestOne(ctx, name)
}

// DocumentStatus is one stored document and whether the index holds it.
type DocumentStatus struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	// Loaded is true once the document's chunks are in the index.
	Loaded bool `json:"loaded"`
}

// Documents lists the stored documents with their index status.
func (s *IngestService) Documents(ctx context.Context) ([]DocumentStatus, error) {
	blobs, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}

	loaded := make(map[string]bool)
	for _, name := range s.index.Loaded() {
		loaded[name] = true
	}

	docs := make([]DocumentStatus, 0, len(blobs))
	for _, info := range blobs {
		docs = append(docs, DocumentStatus{
			Name:      info.Name,
			Size:      info.Size,
			CreatedAt: info.CreatedAt,
			Loaded:    loaded[info.Name],
		})
	}
	return docs, nil
}

// Status reports whether a reload is running and the index shape.
func (s *IngestService) Status() IngestStatus {
	s.mu.Lock()
	running, last := s.running, s.lastReload
	s.mu.Unlock()
	return IngestStatus{
		Running:    running,
		LastReload: last,
		Index:      s.index.Stats(),
	}
}

type ingestResult struct {
	Skipped   bool
	Truncated bool
}

func (s *IngestService) ingestOne(ctx context.Context, name string) (ingestResult, error) {
	data, err := s.blobs.Get(ctx, name)
	if err != nil {
		return ingestResult{}, WrapError(err, "failed to fetch document")
	}

	records, err := s.docs.Load(ctx, loader.Blob{Name: name, Data: data})
	if err != nil {
		return ingestResult{}, WrapError(err, "failed to load document")
	}

	// The corpus budget leaves room for what is already indexed. The budget
	// read and the merge consuming it must not interleave with another
	// worker's, so everything from here to the merge runs under budgetMu.
	s.budgetMu.Lock()
	defer s.budgetMu.Unlock()

	budget := 0
	if s.config.MaxCorpusChunks > 0 {
		budget = s.config.MaxCorpusChunks - s.index.Entries()
		if budget <= 0 {
			return ingestResult{Truncated: true}, fmt.Errorf("corpus chunk budget exhausted")
		}
	}

	split, err := chunker.Split(records, s.config.ChunkSize, s.config.ChunkOverlap, chunker.Limits{
		MaxRecordsPerDoc: s.config.MaxRecordsPerDoc,
		MaxChunks:        budget,
	})
	if err != nil {
		return ingestResult{}, WrapError(err, "failed to chunk document")
	}
	if len(split.Chunks) == 0 {
		return ingestResult{Truncated: split.Truncated}, fmt.Errorf("document produced no chunks")
	}

	merge, err := s.index.Merge(ctx, name, split.Chunks)
	if err != nil {
		return ingestResult{Truncated: split.Truncated}, WrapError(err, "failed to index document")
	}
	return ingestResult{Skipped: merge.Skipped, Truncated: split.Truncated}, nil
}
