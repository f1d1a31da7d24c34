package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"careassist/internal/blobstore"
	"careassist/internal/chunker"
	"careassist/internal/index"
	"careassist/internal/loader"
)

// fakeIndexer records merges and simulates index growth.
type fakeIndexer struct {
	mu       sync.Mutex
	merged   map[string]int
	entries  int
	discards int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{merged: make(map[string]int)}
}

func (f *fakeIndexer) Merge(_ context.Context, source string, chunks []chunker.Chunk) (index.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.merged[source]; ok {
		return index.MergeResult{Skipped: true, Entries: f.merged[source]}, nil
	}
	f.merged[source] = len(chunks)
	f.entries += len(chunks)
	return index.MergeResult{Entries: len(chunks)}, nil
}

func (f *fakeIndexer) Discard(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = make(map[string]int)
	f.entries = 0
	f.discards++
	return nil
}

func (f *fakeIndexer) Entries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries
}

func (f *fakeIndexer) Stats() index.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return index.Stats{Documents: len(f.merged), Entries: f.entries}
}

func (f *fakeIndexer) Loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.merged))
	for name := range f.merged {
		names = append(names, name)
	}
	return names
}

func newIngestFixture(t *testing.T, config IngestConfig) (*IngestService, blobstore.Store, *fakeIndexer) {
	t.Helper()
	blobs, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	idx := newFakeIndexer()
	svc, err := NewIngestService(blobs, loader.NewChain(), idx, 2, config)
	if err != nil {
		t.Fatalf("NewIngestService() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, blobs, idx
}

func defaultIngestConfig() IngestConfig {
	return IngestConfig{
		ChunkSize:        200,
		ChunkOverlap:     40,
		MaxCorpusChunks:  2000,
		MaxRecordsPerDoc: 500,
	}
}

func TestReloadAll_ProcessesDocuments(t *testing.T) {
	svc, blobs, idx := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	_ = blobs.Put(ctx, "hours.md", []byte("# Hours\n\nOpen 9 to 5 on weekdays."))
	_ = blobs.Put(ctx, "rates.csv", []byte("service,price\nX-Ray,120\n"))

	report, err := svc.ReloadAll(ctx)
	if err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if report.Processed != 2 || report.Skipped != 0 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(idx.merged) != 2 {
		t.Errorf("indexed %d documents, want 2", len(idx.merged))
	}
}

func TestReloadAll_FailureIsolatedPerDocument(t *testing.T) {
	svc, blobs, idx := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	_ = blobs.Put(ctx, "good.md", []byte("useful hospital information here"))
	_ = blobs.Put(ctx, "broken.bin", []byte{0x00, 0x01, 0x02, 0x03})

	report, err := svc.ReloadAll(ctx)
	if err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("Processed = %d, want 1", report.Processed)
	}
	if _, ok := report.Failed["broken.bin"]; !ok {
		t.Errorf("Failed = %+v, want broken.bin listed", report.Failed)
	}
	if _, ok := idx.merged["good.md"]; !ok {
		t.Error("good document was not indexed despite the broken one")
	}
}

func TestReloadAll_SecondRunSkipsUnchanged(t *testing.T) {
	svc, blobs, _ := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	_ = blobs.Put(ctx, "doc.md", []byte("stable content"))

	if _, err := svc.ReloadAll(ctx); err != nil {
		t.Fatalf("first ReloadAll() error = %v", err)
	}
	report, err := svc.ReloadAll(ctx)
	if err != nil {
		t.Fatalf("second ReloadAll() error = %v", err)
	}
	if report.Skipped != 1 || report.Processed != 0 {
		t.Errorf("second reload report = %+v, want 1 skipped", report)
	}
}

func TestReloadAll_RebuildDiscardsFirst(t *testing.T) {
	config := defaultIngestConfig()
	config.RebuildOnReload = true
	svc, blobs, idx := newIngestFixture(t, config)
	ctx := context.Background()

	_ = blobs.Put(ctx, "doc.md", []byte("content"))

	if _, err := svc.ReloadAll(ctx); err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if _, err := svc.ReloadAll(ctx); err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if idx.discards != 2 {
		t.Errorf("discards = %d, want 2", idx.discards)
	}
}

func TestIngest_CorpusBudgetExhausted(t *testing.T) {
	config := defaultIngestConfig()
	config.MaxCorpusChunks = 2
	svc, blobs, _ := newIngestFixture(t, config)
	ctx := context.Background()

	long := strings.Repeat("hospital information line\n", 100)
	_ = blobs.Put(ctx, "big.md", []byte(long))

	report, err := svc.ReloadAll(ctx)
	if err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if !report.Truncated {
		t.Errorf("report = %+v, want Truncated", report)
	}

	// The budget is now used up; the next document cannot be ingested.
	_ = blobs.Put(ctx, "more.md", []byte("more content"))
	if err := svc.IngestOne(ctx, "more.md"); err == nil {
		t.Error("IngestOne() expected budget error, got nil")
	}
}

func TestReloadAll_ConcurrentDocumentsRespectBudget(t *testing.T) {
	config := defaultIngestConfig()
	config.MaxCorpusChunks = 5
	svc, blobs, idx := newIngestFixture(t, config)
	ctx := context.Background()

	// Each document chunks to well over the whole budget; with two workers
	// racing, the budget must still hold for the corpus as a whole.
	long := strings.Repeat("ward procedures and visiting rules\n", 200)
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		_ = blobs.Put(ctx, name, []byte(name+"\n"+long))
	}

	report, err := svc.ReloadAll(ctx)
	if err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}
	if !report.Truncated {
		t.Errorf("report = %+v, want Truncated", report)
	}
	if got := idx.Entries(); got > config.MaxCorpusChunks {
		t.Errorf("indexed %d chunks, budget is %d", got, config.MaxCorpusChunks)
	}
}

func TestUpload(t *testing.T) {
	svc, blobs, idx := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	if err := svc.Upload(ctx, "new.md", []byte("fresh document content")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := blobs.Get(ctx, "new.md"); err != nil {
		t.Errorf("uploaded blob missing: %v", err)
	}
	if _, ok := idx.merged["new.md"]; !ok {
		t.Error("uploaded document was not indexed")
	}

	if err := svc.Upload(ctx, "", []byte("x")); err == nil {
		t.Error("Upload() with empty name expected error")
	}
	if err := svc.Upload(ctx, "x.md", nil); err == nil {
		t.Error("Upload() with empty data expected error")
	}
}

func TestDocuments_ReportsLoadedState(t *testing.T) {
	svc, blobs, _ := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	_ = blobs.Put(ctx, "indexed.md", []byte("indexed content"))
	_ = blobs.Put(ctx, "pending.md", []byte("pending content"))
	if err := svc.IngestOne(ctx, "indexed.md"); err != nil {
		t.Fatalf("IngestOne() error = %v", err)
	}

	docs, err := svc.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	byName := make(map[string]DocumentStatus, len(docs))
	for _, doc := range docs {
		byName[doc.Name] = doc
	}
	if !byName["indexed.md"].Loaded {
		t.Error("indexed.md reported as not loaded")
	}
	if byName["pending.md"].Loaded {
		t.Error("pending.md reported as loaded before ingestion")
	}
}

func TestStatus(t *testing.T) {
	svc, blobs, _ := newIngestFixture(t, defaultIngestConfig())
	ctx := context.Background()

	status := svc.Status()
	if status.Running {
		t.Error("Running = true before any reload")
	}
	if !status.LastReload.IsZero() {
		t.Error("LastReload set before any reload")
	}

	_ = blobs.Put(ctx, "doc.md", []byte("content"))
	if _, err := svc.ReloadAll(ctx); err != nil {
		t.Fatalf("ReloadAll() error = %v", err)
	}

	status = svc.Status()
	if status.LastReload.IsZero() {
		t.Error("LastReload still zero after reload")
	}
	if status.Index.Documents != 1 {
		t.Errorf("Index.Documents = %d, want 1", status.Index.Documents)
	}
}
